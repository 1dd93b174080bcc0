package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/laurateck/examdesk/internal/api"
	"github.com/laurateck/examdesk/internal/config"
	"github.com/laurateck/examdesk/internal/logger"
	"github.com/laurateck/examdesk/internal/media"
	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/proctor"
	"github.com/laurateck/examdesk/internal/session"
	"github.com/laurateck/examdesk/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("Session ended with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewFile(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout, log)
	in := bufio.NewReader(os.Stdin)

	identity, err := login(ctx, client, st, in)
	if err != nil {
		return err
	}
	fmt.Printf("\nLogged in as %s (%s)\n", identity.Email, identity.College)

	return media.WithCapture(&media.NullDevice{}, log, func(capture *media.Capture) error {
		if err := preflight(ctx, capture, in); err != nil {
			return err
		}
		return runExam(ctx, cfg, client, st, capture, in, log)
	})
}

// ─── Login ─────────────────────────────────────────────────────────

func login(ctx context.Context, client *api.Client, st store.Store, in *bufio.Reader) (model.Identity, error) {
	if cached, err := store.LoadIdentity(ctx, st, store.NSStudentIdentity); err == nil {
		if info, err := api.PeekToken(cached.Token); err == nil && !info.Expired(time.Now()) {
			client.SetStudentToken(cached.Token)
			return cached, nil
		}
	}

	colleges, err := client.ListPublicColleges(ctx)
	if err == nil && len(colleges) > 0 {
		fmt.Println("Colleges:")
		for _, c := range colleges {
			fmt.Printf("  - %s\n", c.Name)
		}
	}

	email := prompt(in, "Email: ")
	password, err := promptSecret("Password: ")
	if err != nil {
		return model.Identity{}, err
	}
	college := prompt(in, "College name: ")
	passkey, err := promptSecret("College passkey: ")
	if err != nil {
		return model.Identity{}, err
	}

	identity, err := client.StudentLogin(ctx, email, password, college, passkey)
	if err != nil {
		return model.Identity{}, fmt.Errorf("login: %w", err)
	}
	if err := store.SaveIdentity(ctx, st, store.NSStudentIdentity, identity); err != nil {
		return model.Identity{}, fmt.Errorf("persist identity: %w", err)
	}
	return identity, nil
}

// ─── Preflight ─────────────────────────────────────────────────────

func preflight(ctx context.Context, capture *media.Capture, in *bufio.Reader) error {
	fmt.Println("\nBefore starting, you must agree to the exam terms and")
	fmt.Println("grant camera and microphone access for proctoring.")
	if !confirm(in, "Agree to the terms? [y/N] ") {
		return errors.New("terms not accepted")
	}
	capture.Agree()

	if err := capture.RequestCamera(ctx); err != nil {
		return fmt.Errorf("camera access: %w", err)
	}
	if err := capture.RequestMicrophone(ctx); err != nil {
		return fmt.Errorf("microphone access: %w", err)
	}

	for {
		if err := capture.TakePhoto(); err != nil {
			return fmt.Errorf("take photo: %w", err)
		}
		fmt.Println("Identity photo captured.")
		if confirm(in, "Keep this photo? [y/N] ") {
			break
		}
		capture.RetakePhoto()
	}

	if !capture.Ready() {
		return errors.New("preflight incomplete")
	}
	return nil
}

// ─── Exam ──────────────────────────────────────────────────────────

func runExam(ctx context.Context, cfg *config.Config, client *api.Client, st store.Store, capture *media.Capture, in *bufio.Reader, log zerolog.Logger) error {
	attempt, err := client.StartExamAuto(ctx)
	if err != nil {
		return fmt.Errorf("start exam: %w", err)
	}

	ov, err := session.NewOverview(ctx, client, st, attempt, cfg.EndsAtOffset, log, session.WithMedia(capture))
	if err != nil {
		return err
	}
	if err := ov.Load(ctx); err != nil {
		return fmt.Errorf("load paper: %w", err)
	}

	// Proctoring runs best-effort in the background and never blocks the
	// exam flow.
	if cfg.ProctorURL != "" {
		uplink, err := proctor.Dial(ctx, cfg.ProctorURL, client.StudentToken(), attempt.AttemptID, cfg.ProctorHeartbeat, log)
		if err != nil {
			log.Warn().Err(err).Msg("Proctor uplink unavailable")
		} else {
			defer uplink.Close()
			go uplink.Run(ctx)
			if photo := capture.Photo(); photo != nil {
				uplink.SendSnapshot(photo)
			}
		}
	}

	for {
		tick := ov.Countdown().Observe()
		if tick.Expired {
			return submitFinal(ctx, ov, in, true)
		}

		printOverview(ov, tick)
		if ov.AllCompleted() {
			if confirm(in, "All sections complete. Submit now? [y/N] ") {
				return submitFinal(ctx, ov, in, false)
			}
			continue
		}

		subject := prompt(in, "Section to start (or 'submit'): ")
		if subject == "submit" {
			if confirm(in, "Submit with incomplete sections? [y/N] ") {
				return submitFinal(ctx, ov, in, true)
			}
			continue
		}

		runner, err := ov.StartSubject(subject)
		if err != nil {
			fmt.Printf("Cannot start %q: %v\n", subject, err)
			continue
		}
		timeUp := runSection(ov, runner, in)
		if err := ov.RecordSubject(ctx, runner.Finish(timeUp)); err != nil {
			return fmt.Errorf("record section: %w", err)
		}
		if timeUp {
			return submitFinal(ctx, ov, in, true)
		}
	}
}

func printOverview(ov *session.Overview, tick session.Tick) {
	fmt.Printf("\n=== Exam Overview ===  time left %s\n", session.FormatClock(tick.Remaining))
	paper := ov.Paper()
	for _, s := range ov.Subjects() {
		mark := " "
		if ov.SubjectCompleted(s) {
			mark = "x"
		}
		fmt.Printf("  [%s] %s (%d questions)\n", mark, s, len(paper.QuestionsFor(s)))
	}
}

// runSection walks the runner until the last question is answered or skipped.
// Returns true when the countdown expired mid-section.
func runSection(ov *session.Overview, runner *session.Runner, in *bufio.Reader) bool {
	for {
		tick := ov.Countdown().Observe()
		if tick.Expired {
			fmt.Println("\nTime is up. Submitting what you have.")
			return true
		}
		if tick.Warn == session.WarnFinal {
			fmt.Println("** Less than a minute remaining! **")
		} else if tick.Warn == session.WarnFiveMinutes {
			fmt.Println("** Less than five minutes remaining. **")
		}

		q := runner.Current()
		fmt.Printf("\n[%s %d/%d] %s  (%s left)\n", runner.Subject(), runner.Index()+1, runner.Len(), q.Text, session.FormatClock(tick.Remaining))
		for i, opt := range q.Options {
			fmt.Printf("  %d) %s\n", i+1, opt.Text)
		}

		line := prompt(in, "Answer number, 'skip', or 'done': ")
		switch line {
		case "done":
			return false
		case "skip":
		default:
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(q.Options) {
				fmt.Println("Pick one of the listed numbers.")
				continue
			}
			if err := runner.Choose(q.Options[n-1].ID); err != nil {
				fmt.Printf("Cannot record answer: %v\n", err)
				continue
			}
		}

		if runner.OnLast() {
			// No backtracking once the section closes, so ask first.
			if confirm(in, fmt.Sprintf("Last question. Submit the %s section?", runner.Subject())) {
				return false
			}
			continue
		}
		runner.Next()
	}
}

func submitFinal(ctx context.Context, ov *session.Overview, in *bufio.Reader, force bool) error {
	summary, err := ov.FinalSubmit(ctx, force)
	if err != nil {
		return fmt.Errorf("final submit: %w", err)
	}

	fmt.Println("\n=== Exam Submitted ===")
	if summary.AlreadySubmitted {
		fmt.Println("This attempt was already submitted earlier.")
	}
	fmt.Printf("Questions attempted: %d / %d\n", summary.QuestionsAttempted, summary.TotalQuestions)
	fmt.Printf("Time taken: %s\n", session.FormatClock(summary.TimeTaken))

	// Feedback never leaves the machine; there is no backend endpoint for it.
	if feedback := prompt(in, "Any feedback on the exam experience? (optional) "); feedback != "" {
		fmt.Println("Thanks for the feedback!")
	}

	fmt.Printf("Returning in %s...\n", session.SuccessAutoReturn)
	select {
	case <-ctx.Done():
	case <-time.After(session.SuccessAutoReturn):
	}
	return nil
}

// ─── Terminal helpers ──────────────────────────────────────────────

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptSecret(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func confirm(in *bufio.Reader, label string) bool {
	answer := strings.ToLower(prompt(in, label))
	return answer == "y" || answer == "yes"
}
