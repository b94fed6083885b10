package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/StudyDesk/internal/client/engine"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	savedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	savingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

const shellHelp = `Notes:
  notes                      list notes, most recently updated first
  note new                   create and select a note
  note select <id>           select a note
  note show                  print the selected note
  note title <text>          retitle the selected note
  note body <text>           replace the selected note's body
  note category <text>       set the selected note's category
  note rm [id]               delete a note (default: selected)
Plans:
  plans                      list plans and tasks
  plan add <title>           create a plan
  plan rename <id> <title>   rename a plan
  plan rm <id>               delete a plan and its tasks
  task add <plan> <title>    add a task to a plan
  task rename <id> <title>   rename a task
  task toggle <id>           flip a task's completion
  task rm <id>               delete a task
Other:
  status                     show the save indicator
  retry                      resend failed saves
  reload                     discard local state and fetch from the server
  help, exit`

// shell is the interactive loop over the note and plan working sets.
type shell struct {
	notes *engine.Notes
	plans *engine.Plans
	out   io.Writer
}

// run reads commands from in until EOF or "exit". Pending edits are saved
// before it returns.
func (s *shell) run(ctx context.Context, in io.Reader) {
	defer s.drain()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(s.out, "%s studydesk> ", s.indicator())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		if err := s.exec(ctx, args); err != nil {
			fmt.Fprintln(s.out, errorStyle.Render("error:"), err)
		}
	}
}

func (s *shell) drain() {
	s.notes.Flush()
	s.plans.Flush()
	s.notes.Wait()
	s.plans.Wait()
}

func (s *shell) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, shellHelp)
	case "notes":
		s.printNotes()
	case "note":
		return s.note(args[1:])
	case "plans":
		s.printPlans()
	case "plan":
		return s.plan(args[1:])
	case "task":
		return s.task(args[1:])
	case "status":
		fmt.Fprintln(s.out, s.indicator())
		s.printErrors()
	case "retry":
		s.notes.Retry()
		s.plans.Retry()
	case "reload":
		s.drain()
		if err := s.notes.Load(ctx); err != nil {
			return err
		}
		return s.plans.Load(ctx)
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", args[0])
	}
	return nil
}

func (s *shell) note(args []string) error {
	if len(args) == 0 {
		return usage("note new|select|show|title|body|category|rm")
	}
	rest := strings.Join(args[1:], " ")
	switch args[0] {
	case "new":
		id := s.notes.New()
		fmt.Fprintln(s.out, id)
		return nil
	case "select":
		if len(args) != 2 {
			return usage("note select <id>")
		}
		return s.notes.Select(engine.ParseID(args[1]))
	case "show":
		n, ok := s.notes.Active()
		if !ok {
			return errors.New("no note selected")
		}
		fmt.Fprintf(s.out, "# %s\n", n.DisplayTitle())
		if n.Category != "" {
			fmt.Fprintf(s.out, "category: %s\n", n.Category)
		}
		fmt.Fprintf(s.out, "%s\n\n%s\n", faintStyle.Render(n.ID.String()), n.Body)
		return nil
	case "title", "body", "category":
		var edit engine.NoteEdit
		switch args[0] {
		case "title":
			edit.Title = &rest
		case "body":
			edit.Body = &rest
		default:
			edit.Category = &rest
		}
		return noSelection(s.notes.EditActive(edit))
	case "rm":
		if len(args) == 2 {
			return s.notes.Delete(engine.ParseID(args[1]))
		}
		return noSelection(s.notes.DeleteActive())
	}
	return fmt.Errorf("unknown note command %q", args[0])
}

func (s *shell) plan(args []string) error {
	if len(args) == 0 {
		return usage("plan add|rename|rm")
	}
	switch args[0] {
	case "add":
		id, err := s.plans.AddPlan(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, id)
		return nil
	case "rename":
		if len(args) < 3 {
			return usage("plan rename <id> <title>")
		}
		return s.plans.RenamePlan(engine.ParseID(args[1]), strings.Join(args[2:], " "))
	case "rm":
		if len(args) != 2 {
			return usage("plan rm <id>")
		}
		return s.plans.DeletePlan(engine.ParseID(args[1]))
	}
	return fmt.Errorf("unknown plan command %q", args[0])
}

func (s *shell) task(args []string) error {
	if len(args) < 2 {
		return usage("task add|rename|toggle|rm")
	}
	id := engine.ParseID(args[1])
	switch args[0] {
	case "add":
		taskID, err := s.plans.AddTask(id, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, taskID)
		return nil
	case "rename":
		return s.plans.RenameTask(id, strings.Join(args[2:], " "))
	case "toggle":
		return s.plans.ToggleTask(id)
	case "rm":
		return s.plans.DeleteTask(id)
	}
	return fmt.Errorf("unknown task command %q", args[0])
}

func noSelection(err error) error {
	if errors.Is(err, engine.ErrUnknownItem) {
		return errors.New("no note selected")
	}
	return err
}

func usage(u string) error {
	return fmt.Errorf("usage: %s", u)
}

// indicator combines both engines into one save indicator.
func (s *shell) indicator() string {
	st := s.notes.Status()
	if ps := s.plans.Status(); rank(ps) > rank(st) {
		st = ps
	}
	switch st {
	case engine.StatusError:
		return errorStyle.Render("[" + st.String() + "]")
	case engine.StatusSaving:
		return savingStyle.Render("[" + st.String() + "]")
	case engine.StatusSaved:
		return savedStyle.Render("[" + st.String() + "]")
	}
	return faintStyle.Render("[-]")
}

func rank(s engine.Status) int {
	switch s {
	case engine.StatusError:
		return 3
	case engine.StatusSaving:
		return 2
	case engine.StatusSaved:
		return 1
	}
	return 0
}

func (s *shell) printNotes() {
	active, _ := s.notes.Active()
	for _, n := range s.notes.Notes() {
		marker := " "
		if n.ID == active.ID {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s  %s  %s", marker, n.ID, n.DisplayTitle(),
			faintStyle.Render(n.UpdatedAt.Local().Format(time.DateTime)))
		if n.Err != nil {
			line += " " + errorStyle.Render("!")
		}
		fmt.Fprintln(s.out, line)
	}
}

func (s *shell) printPlans() {
	for _, p := range s.plans.Plans() {
		line := fmt.Sprintf("%s  %s", p.ID, p.Title)
		if p.Err != nil {
			line += " " + errorStyle.Render("!")
		}
		fmt.Fprintln(s.out, line)
		for _, t := range p.Tasks {
			line := fmt.Sprintf("    %s %s  %s", checkbox(t.Done), t.ID, t.Title)
			if t.Queued {
				line += " " + faintStyle.Render("(queued)")
			}
			if t.Err != nil {
				line += " " + errorStyle.Render("!")
			}
			fmt.Fprintln(s.out, line)
		}
	}
}

func (s *shell) printErrors() {
	for _, n := range s.notes.Notes() {
		if n.Err != nil {
			fmt.Fprintf(s.out, "note %s: %v\n", n.ID, n.Err)
		}
	}
	for _, p := range s.plans.Plans() {
		if p.Err != nil {
			fmt.Fprintf(s.out, "plan %s: %v\n", p.ID, p.Err)
		}
		for _, t := range p.Tasks {
			if t.Err != nil {
				fmt.Fprintf(s.out, "task %s: %v\n", t.ID, t.Err)
			}
		}
	}
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with background autosave",
	Long: `Start an interactive shell over your notes and plans. Edits apply
locally at once and are saved in the background; text edits are saved
after a short pause in typing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		delay, _ := cmd.Flags().GetDuration("autosave")
		ctx := cmd.Context()
		opts := []engine.Option{
			engine.WithContext(ctx),
			engine.WithDelay(delay),
			engine.WithLogger(log.Log),
		}
		s := &shell{
			notes: engine.NewNotes(client, opts...),
			plans: engine.NewPlans(client, opts...),
			out:   cmd.OutOrStdout(),
		}

		loadCtx, cancel := requestContext(cmd)
		defer cancel()
		if err := s.notes.Load(loadCtx); err != nil {
			return err
		}
		if err := s.plans.Load(loadCtx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Type 'help' for a list of commands.")
		s.run(ctx, cmd.InOrStdin())
		return nil
	},
}

func init() {
	shellCmd.Flags().Duration("autosave", engine.DefaultDelay, "pause after the last keystroke before a text edit is saved")
	rootCmd.AddCommand(shellCmd)
}
