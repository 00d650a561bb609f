package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"

	"jobPilot/internal/database"
	"jobPilot/internal/tasks"
)

const defaultAddr = "http://localhost:8080"

type client struct {
	addr string
	http *http.Client
}

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cli := &client{
		addr: strings.TrimRight(envOr("JOBPILOT_ADDR", defaultAddr), "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "status":
		err = cli.status(args)
	case "tasks":
		err = cli.tasks(args)
	case "cancel":
		err = cli.cancel(args)
	case "scrape":
		err = cli.scrape(args)
	case "jobs":
		err = cli.jobs(args)
	case "score":
		err = cli.score(args)
	case "generate":
		err = cli.generate(args)
	case "apply":
		err = cli.apply(args)
	case "chat":
		err = cli.chat(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `jobctl 操作正在运行的 jobPilot API。

用法:
  jobctl <command> [flags]

命令:
  status     查看队列状态
  tasks      查看最近任务
  cancel     取消排队中的任务: jobctl cancel <task-id>
  scrape     运行职位抓取
  jobs       列出职位库
  score      给职位打分: -job <id> 或 -all
  generate   生成申请文档: -job <id> [-doc resume|cover_letter|documents]
  apply      自动投递: -job <id>
  chat       向求职助手提问: -message "..."

环境变量 JOBPILOT_ADDR 指定 API 地址（默认 http://localhost:8080）。
`)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (c *client) get(path string) ([]byte, error) {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) post(path string, body any) ([]byte, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *client) del(path string) ([]byte, error) {
	return c.do(http.MethodDelete, path, nil)
}

func (c *client) do(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.addr+path, reader)
	if err != nil {
		return nil, err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}

type taskEnvelope struct {
	Task *tasks.Task `json:"task"`
}

func decodeTask(data []byte) (*tasks.Task, error) {
	var env taskEnvelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if env.Task == nil {
		return nil, errors.New("response has no task")
	}
	return env.Task, nil
}

func printTask(t *tasks.Task) {
	fmt.Printf("task %s  type=%s  status=%s\n", t.ID, t.Type, t.Status)
	if len(t.Result) > 0 {
		if pretty, err := prettyJSON(t.Result); err == nil {
			fmt.Println(pretty)
		} else {
			fmt.Println(string(t.Result))
		}
	}
	if t.Error != "" {
		fmt.Printf("error: %s\n", t.Error)
	}
}

func prettyJSON(raw []byte) (string, error) {
	var v any
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// waitTask 轮询任务直到终态。队列按序执行，
// 排在前面的任务也会一并被等到。
func (c *client) waitTask(id string) (*tasks.Task, error) {
	for {
		data, err := c.get("/v1/queue/tasks/" + id)
		if err != nil {
			return nil, err
		}
		t, err := decodeTask(data)
		if err != nil {
			return nil, err
		}
		switch t.Status {
		case tasks.StatusCompleted, tasks.StatusFailed, tasks.StatusCancelled:
			return t, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// finish 打印已入队的任务；wait 为真时轮询到终态再打印结果。
func (c *client) finish(data []byte, wait bool) error {
	t, err := decodeTask(data)
	if err != nil {
		return err
	}
	if !wait {
		printTask(t)
		return nil
	}
	fmt.Printf("task %s queued, waiting...\n", t.ID)
	done, err := c.waitTask(t.ID)
	if err != nil {
		return err
	}
	printTask(done)
	return nil
}

func (c *client) status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := c.get("/v1/queue/status")
	if err != nil {
		return err
	}
	var snap struct {
		RunningTask      *tasks.Task `json:"running_task"`
		PendingCount     int         `json:"pending_count"`
		ConnectedClients int         `json:"connected_clients"`
	}
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	if snap.RunningTask != nil {
		fmt.Printf("running: %s (%s)\n", snap.RunningTask.Type, snap.RunningTask.ID)
	} else {
		fmt.Println("running: none")
	}
	fmt.Printf("pending: %d\n", snap.PendingCount)
	fmt.Printf("clients: %d\n", snap.ConnectedClients)
	return nil
}

func (c *client) tasks(args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	limit := fs.Int("limit", 20, "返回条数")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := c.get("/v1/queue/tasks?limit=" + strconv.Itoa(*limit))
	if err != nil {
		return err
	}
	var resp struct {
		Tasks []*tasks.Task `json:"tasks"`
	}
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("decode tasks: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCREATED")
	for _, t := range resp.Tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			t.ID, t.Type, t.Status, t.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func (c *client) cancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id := fs.Arg(0)
	if id == "" {
		return errors.New("usage: jobctl cancel <task-id>")
	}

	data, err := c.del("/v1/queue/tasks/" + id)
	if err != nil {
		return err
	}
	t, err := decodeTask(data)
	if err != nil {
		return err
	}
	fmt.Printf("task %s cancelled\n", t.ID)
	return nil
}

func (c *client) scrape(args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	source := fs.String("source", "", "抓取器名称，留空则全部运行")
	query := fs.String("query", "", "关键词过滤")
	location := fs.String("location", "", "地点过滤")
	wait := fs.Bool("wait", false, "等待任务结束并打印结果")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := c.post("/v1/scrapers/run", map[string]string{
		"source":   *source,
		"query":    *query,
		"location": *location,
	})
	if err != nil {
		return err
	}
	return c.finish(data, *wait)
}

func (c *client) jobs(args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)
	status := fs.String("status", "", "按状态过滤")
	source := fs.String("source", "", "按来源过滤")
	minScore := fs.Float64("min-score", 0, "最低评分")
	query := fs.String("query", "", "标题/公司关键词")
	location := fs.String("location", "", "地点关键词")
	jobType := fs.String("type", "", "职位类型关键词")
	limit := fs.Int("limit", 50, "返回条数")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := url.Values{}
	if *status != "" {
		params.Set("status", *status)
	}
	if *source != "" {
		params.Set("source", *source)
	}
	if *minScore > 0 {
		params.Set("min_score", strconv.FormatFloat(*minScore, 'f', -1, 64))
	}
	if *query != "" {
		params.Set("query", *query)
	}
	if *location != "" {
		params.Set("location", *location)
	}
	if *jobType != "" {
		params.Set("job_type", *jobType)
	}
	params.Set("limit", strconv.Itoa(*limit))

	data, err := c.get("/v1/jobs?" + params.Encode())
	if err != nil {
		return err
	}
	var resp struct {
		Jobs  []database.Job `json:"jobs"`
		Count int            `json:"count"`
	}
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("decode jobs: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tSTATUS\tTITLE\tCOMPANY\tLOCATION")
	for _, j := range resp.Jobs {
		score := "-"
		if j.MatchScore != nil {
			score = strconv.FormatFloat(*j.MatchScore, 'f', 1, 64)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, score, j.Status, j.Title, j.Company, j.Location)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d jobs\n", resp.Count)
	return nil
}

func (c *client) score(args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	jobID := fs.Uint("job", 0, "职位 ID")
	all := fs.Bool("all", false, "给全部未评分职位打分")
	wait := fs.Bool("wait", false, "等待任务结束并打印结果")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch {
	case *all:
		data, err = c.post("/v1/generators/score_all", nil)
	case *jobID > 0:
		data, err = c.post(fmt.Sprintf("/v1/generators/%d/score", *jobID), nil)
	default:
		return errors.New("either -job or -all is required")
	}
	if err != nil {
		return err
	}
	return c.finish(data, *wait)
}

func (c *client) generate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	jobID := fs.Uint("job", 0, "职位 ID（必填）")
	doc := fs.String("doc", "documents", "生成内容: resume、cover_letter 或 documents")
	wait := fs.Bool("wait", false, "等待任务结束并打印结果")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *jobID == 0 {
		return errors.New("missing required flag: -job")
	}
	switch *doc {
	case "resume", "cover_letter", "documents":
	default:
		return fmt.Errorf("invalid -doc %q", *doc)
	}

	data, err := c.post(fmt.Sprintf("/v1/generators/%d/%s", *jobID, *doc), nil)
	if err != nil {
		return err
	}
	return c.finish(data, *wait)
}

func (c *client) apply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	jobID := fs.Uint("job", 0, "职位 ID（必填）")
	wait := fs.Bool("wait", false, "等待任务结束并打印结果")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *jobID == 0 {
		return errors.New("missing required flag: -job")
	}

	data, err := c.post(fmt.Sprintf("/v1/generators/%d/apply", *jobID), nil)
	if err != nil {
		return err
	}
	return c.finish(data, *wait)
}

func (c *client) chat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	message := fs.String("message", "", "要问的问题（必填）")
	jobID := fs.Uint("job", 0, "带上职位上下文")
	extra := fs.String("context", "", "附加上下文")
	wait := fs.Bool("wait", true, "等待回复")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*message) == "" {
		return errors.New("missing required flag: -message")
	}

	body := map[string]any{"message": *message}
	if *jobID > 0 {
		body["job_id"] = *jobID
	}
	if *extra != "" {
		body["context"] = *extra
	}

	data, err := c.post("/v1/chat", body)
	if err != nil {
		return err
	}
	if !*wait {
		return c.finish(data, false)
	}

	t, err := decodeTask(data)
	if err != nil {
		return err
	}
	done, err := c.waitTask(t.ID)
	if err != nil {
		return err
	}
	if done.Status == tasks.StatusCompleted && len(done.Result) > 0 {
		var reply struct {
			Response string `json:"response"`
		}
		if err := sonic.Unmarshal(done.Result, &reply); err == nil && reply.Response != "" {
			fmt.Println(reply.Response)
			return nil
		}
	}
	printTask(done)
	return nil
}
