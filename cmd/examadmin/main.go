package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/laurateck/examdesk/internal/api"
	"github.com/laurateck/examdesk/internal/config"
	"github.com/laurateck/examdesk/internal/logger"
	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/store"
)

const usage = `Usage: examadmin <command> [flags]

Commands:
  exams           List exams
  exam-create     Create an exam
  question-add    Add a question to an exam
  bulk-upload     Upload a CSV of questions to an exam
  colleges        List colleges
  college-create  Create a college
  college-update  Update a college
  college-delete  Deactivate a college
  registrations   List student registrations
  contacts        List contact submissions
  results         Show results for an exam
  logout          Forget the cached admin login
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	st, err := store.NewFile(cfg.StoreDir)
	if err != nil {
		fatal("open store: %v", err)
	}
	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout, log)

	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "logout" {
		if err := store.ClearIdentity(ctx, st, store.NSAdminIdentity); err != nil {
			fatal("logout: %v", err)
		}
		fmt.Println("Logged out.")
		return
	}

	if err := adminLogin(ctx, client, st); err != nil {
		fatal("login: %v", err)
	}

	if err := dispatch(ctx, client, cmd, args); err != nil {
		fatal("%s: %v", cmd, err)
	}
}

func dispatch(ctx context.Context, client *api.Client, cmd string, args []string) error {
	switch cmd {
	case "exams":
		return listExams(ctx, client)
	case "exam-create":
		return createExam(ctx, client, args)
	case "question-add":
		return addQuestion(ctx, client, args)
	case "bulk-upload":
		return bulkUpload(ctx, client, args)
	case "colleges":
		return listColleges(ctx, client)
	case "college-create":
		return createCollege(ctx, client, args)
	case "college-update":
		return updateCollege(ctx, client, args)
	case "college-delete":
		return deleteCollege(ctx, client, args)
	case "registrations":
		return listRegistrations(ctx, client)
	case "contacts":
		return listContacts(ctx, client, args)
	case "results":
		return showResults(ctx, client, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// adminLogin reuses a cached, unexpired token; otherwise prompts.
func adminLogin(ctx context.Context, client *api.Client, st store.Store) error {
	if cached, err := store.LoadIdentity(ctx, st, store.NSAdminIdentity); err == nil {
		if info, err := api.PeekToken(cached.Token); err == nil && !info.Expired(time.Now()) {
			client.SetAdminToken(cached.Token)
			return nil
		}
	}

	in := bufio.NewReader(os.Stdin)
	fmt.Print("Admin email: ")
	email, _ := in.ReadString('\n')
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	identity, err := client.AdminLogin(ctx, strings.TrimSpace(email), strings.TrimSpace(string(pw)))
	if err != nil {
		return err
	}
	return store.SaveIdentity(ctx, st, store.NSAdminIdentity, identity)
}

// ─── Exams ─────────────────────────────────────────────────────────

func listExams(ctx context.Context, client *api.Client) error {
	exams, err := client.ListExams(ctx)
	if err != nil {
		return err
	}
	for _, e := range exams {
		fmt.Printf("%-36s  %-30s  %3d min  %s → %s\n", e.ID, e.Title, e.DurationMinutes, e.WindowStart, e.WindowEnd)
	}
	fmt.Printf("%d exam(s)\n", len(exams))
	return nil
}

func createExam(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("exam-create", flag.ExitOnError)
	title := fs.String("title", "", "exam title")
	description := fs.String("description", "", "exam description")
	windowStart := fs.String("window-start", "", "window opens at (RFC 3339)")
	windowEnd := fs.String("window-end", "", "window closes at (RFC 3339)")
	duration := fs.Int("duration", 0, "duration in minutes")
	subjects := fs.String("subjects", "", "comma-separated subject names")
	category := fs.String("category", "", "exam category")
	fs.Parse(args)

	req := model.CreateExamRequest{
		Title:           *title,
		Description:     *description,
		WindowStart:     *windowStart,
		WindowEnd:       *windowEnd,
		DurationMinutes: *duration,
		Subjects:        splitList(*subjects),
		Category:        *category,
	}
	if err := client.CreateExam(ctx, req); err != nil {
		return err
	}
	fmt.Println("Exam created.")
	return nil
}

func addQuestion(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("question-add", flag.ExitOnError)
	examID := fs.String("exam", "", "exam id")
	text := fs.String("text", "", "question text")
	options := fs.String("options", "", "comma-separated option texts")
	correct := fs.Int("correct", 0, "zero-based index of the correct option")
	subject := fs.String("subject", "", "subject name")
	fs.Parse(args)

	opts := splitList(*options)
	req := model.AddQuestionRequest{
		Text:         *text,
		CorrectIndex: *correct,
		SubjectName:  *subject,
	}
	for _, o := range opts {
		req.Options = append(req.Options, model.OptionText{Text: o})
	}
	if err := client.AddQuestion(ctx, *examID, req); err != nil {
		return err
	}
	fmt.Println("Question added.")
	return nil
}

func bulkUpload(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("bulk-upload", flag.ExitOnError)
	examID := fs.String("exam", "", "exam id")
	path := fs.String("file", "", "CSV file of questions")
	fs.Parse(args)

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	if err := client.BulkUploadQuestions(ctx, *examID, f.Name(), f); err != nil {
		return err
	}
	fmt.Println("Questions uploaded.")
	return nil
}

// ─── Colleges ──────────────────────────────────────────────────────

func listColleges(ctx context.Context, client *api.Client) error {
	colleges, err := client.ListColleges(ctx)
	if err != nil {
		return err
	}
	for _, c := range colleges {
		state := "inactive"
		if c.IsActive {
			state = "active"
		}
		fmt.Printf("%4d  %-30s  passkey until %-20s  %s\n", c.ID, c.Name, c.PasskeyExpiresAt, state)
	}
	return nil
}

func collegeFlags(fs *flag.FlagSet) (name, passkey, expires *string) {
	name = fs.String("name", "", "college name")
	passkey = fs.String("passkey", "", "access passkey")
	expires = fs.String("expires", "", "passkey expiry (RFC 3339)")
	return
}

func createCollege(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("college-create", flag.ExitOnError)
	name, passkey, expires := collegeFlags(fs)
	fs.Parse(args)

	err := client.CreateCollege(ctx, model.CollegeRequest{
		Name:             *name,
		Passkey:          *passkey,
		PasskeyExpiresAt: *expires,
	})
	if err != nil {
		return err
	}
	fmt.Println("College created.")
	return nil
}

func updateCollege(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("college-update", flag.ExitOnError)
	id := fs.Int("id", 0, "college id")
	name, passkey, expires := collegeFlags(fs)
	fs.Parse(args)

	req := model.CollegeRequest{
		Name:             *name,
		Passkey:          *passkey,
		PasskeyExpiresAt: *expires,
	}

	// Flags left empty keep the current values, so a passkey rotation does
	// not require retyping the name and expiry.
	if req.Name == "" || req.Passkey == "" || req.PasskeyExpiresAt == "" {
		colleges, err := client.ListColleges(ctx)
		if err != nil {
			return fmt.Errorf("prefill: %w", err)
		}
		for _, c := range colleges {
			if c.ID != *id {
				continue
			}
			if req.Name == "" {
				req.Name = c.Name
			}
			if req.Passkey == "" {
				req.Passkey = c.Passkey
			}
			if req.PasskeyExpiresAt == "" {
				req.PasskeyExpiresAt = c.PasskeyExpiresAt
			}
		}
	}

	if err := client.UpdateCollege(ctx, *id, req); err != nil {
		return err
	}
	fmt.Println("College updated.")
	return nil
}

func deleteCollege(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("college-delete", flag.ExitOnError)
	id := fs.Int("id", 0, "college id")
	fs.Parse(args)

	if err := client.DeleteCollege(ctx, *id); err != nil {
		return err
	}
	fmt.Println("College deactivated.")
	return nil
}

// ─── Registrations, contacts, results ──────────────────────────────

func listRegistrations(ctx context.Context, client *api.Client) error {
	regs, err := client.ListRegistrations(ctx)
	if err != nil {
		return err
	}
	for _, r := range regs {
		fmt.Printf("%6d  %-25s  %-30s  %s\n", r.UserID, r.Name, r.Email, r.College)
	}
	fmt.Printf("%d registration(s)\n", len(regs))
	return nil
}

func listContacts(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	kind := fs.String("kind", "student", "student, college or recruiter")
	limit := fs.Int("limit", 50, "page size")
	offset := fs.Int("offset", 0, "page offset")
	fs.Parse(args)

	subs, err := client.ListContactSubmissions(ctx, model.ContactKind(*kind), *limit, *offset)
	if err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Printf("%6d  %-25s  %-30s  %s\n", s.ID, s.Name, s.Email, s.CreatedAt)
	}
	return nil
}

func showResults(ctx context.Context, client *api.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: results <exam-id>")
	}
	examID := args[0]

	results, err := client.ExamResults(ctx, examID)
	if err != nil {
		return err
	}
	roster, err := client.ListRegistrations(ctx)
	if err != nil {
		return err
	}

	for _, row := range model.JoinResults(examID, results.Attempts, roster) {
		fmt.Printf("%-25s  %5.1f/%-5.1f  %5.1f%%  submitted %s\n",
			row.StudentName, row.Score, row.Total, row.Percentage, row.SubmittedAt)
		for _, b := range row.Breakdown {
			fmt.Printf("    %-20s %3d/%-3d\n", b.Subject, b.Correct, b.Total)
		}
	}
	return nil
}

// ─── Helpers ───────────────────────────────────────────────────────

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
