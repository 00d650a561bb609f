package tasks

// Type 标识任务类别，是一个封闭集合：
// 队列只接受这里声明的类型，API 层在入队前完成校验。
type Type string

const (
	TypeScraping              Type = "scraping"
	TypeJobScoring            Type = "job_scoring"
	TypeBulkScoring           Type = "bulk_scoring"
	TypeResumeGeneration      Type = "resume_generation"
	TypeCoverLetterGeneration Type = "cover_letter_generation"
	TypeDocumentGeneration    Type = "document_generation"
	TypeJobApplication        Type = "job_application"
	TypeProfileUpdate         Type = "profile_update"
	TypeChat                  Type = "chat"
)

// AllTypes 按稳定顺序列出全部合法任务类型。
var AllTypes = []Type{
	TypeScraping,
	TypeJobScoring,
	TypeBulkScoring,
	TypeResumeGeneration,
	TypeCoverLetterGeneration,
	TypeDocumentGeneration,
	TypeJobApplication,
	TypeProfileUpdate,
	TypeChat,
}

// String 返回类型的原始字符串值。
func (t Type) String() string { return string(t) }

// ParseType 将字符串解析为任务类型，未知值返回 ErrUnknownType。
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes {
		if s == string(t) {
			return t, nil
		}
	}
	return "", ErrUnknownType
}
