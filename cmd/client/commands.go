package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atinyakov/StudyDesk/internal/client/storage"
	"github.com/atinyakov/StudyDesk/internal/models"
	"github.com/spf13/cobra"
)

const requestTimeout = 15 * time.Second

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify the connection flags and remember them",
	Long: `Call /api/me with the given flags and, if it succeeds, store the
server URL, token and certificate paths in the profile so later commands
can omit them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		me, err := client.Me(ctx)
		if err != nil {
			return err
		}
		err = profile.Save(storage.Profile{
			URL:      flags.URL,
			Token:    flags.Token,
			CAFile:   flags.CAFile,
			CertFile: flags.CertFile,
			KeyFile:  flags.KeyFile,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s). Profile saved to %s\n",
			displayName(me), me.ID, profile.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return profile.Clear()
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		me, err := client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nid: %s\nlevel: %s, points: %d\n",
			displayName(me), me.Email, me.ID, me.Level, me.Points)
		return nil
	},
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// notes

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sort, _ := cmd.Flags().GetString("sort")
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		notes, err := client.ListNotes(ctx, models.NoteSort(sort))
		if err != nil {
			return err
		}
		printNotes(cmd.OutOrStdout(), notes)
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		n, err := client.GetNote(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", noteTitle(n.Title))
		if n.Category != "" {
			fmt.Fprintf(out, "category: %s\n", n.Category)
		}
		fmt.Fprintf(out, "updated: %s\n\n%s\n", n.UpdatedAt.Local().Format(time.DateTime), n.Body)
		return nil
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a note",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := models.NoteInput{}
		if len(args) == 1 {
			in.Title = args[0]
		}
		in.Body, _ = cmd.Flags().GetString("body")
		in.Category, _ = cmd.Flags().GetString("category")

		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		n, err := client.CreateNote(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n.ID)
		return nil
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a note's title, body or category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch models.NotePatch
		patch.Title = changedString(cmd, "title")
		patch.Body = changedString(cmd, "body")
		patch.Category = changedString(cmd, "category")

		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		if _, err := client.UpdateNote(ctx, args[0], patch); err != nil {
			return err
		}
		return nil
	},
}

var notesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		return client.DeleteNote(ctx, args[0])
	},
}

// plans

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Manage plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans with their tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		plans, err := client.ListPlans(ctx)
		if err != nil {
			return err
		}
		printPlans(cmd.OutOrStdout(), plans)
		return nil
	},
}

var plansAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		p, err := client.CreatePlan(ctx, models.PlanInput{Title: args[0]})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	},
}

var plansRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		_, err = client.UpdatePlan(ctx, args[0], models.PlanPatch{Title: &args[1]})
		return err
	},
}

var plansRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a plan and all of its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		n, err := client.DeletePlan(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan and %d task(s)\n", n)
		return nil
	},
}

// todos

var todosCmd = &cobra.Command{
	Use:   "todos",
	Short: "Manage todos",
}

var todosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter models.TodoFilter
		filter.PlanID = changedString(cmd, "plan")
		filter.Standalone, _ = cmd.Flags().GetBool("standalone")

		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		todos, err := client.ListTodos(ctx, filter)
		if err != nil {
			return err
		}
		printTodos(cmd.OutOrStdout(), todos)
		return nil
	},
}

var todosAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a todo, optionally inside a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := models.TodoInput{Title: args[0]}
		in.PlanID = changedString(cmd, "plan")
		in.Description, _ = cmd.Flags().GetString("description")
		in.Category, _ = cmd.Flags().GetString("category")
		due, _ := cmd.Flags().GetString("due")
		var err error
		if in.DueDate, err = parseDue(due, time.Now()); err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		td, err := client.CreateTodo(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), td.ID)
		return nil
	},
}

var todosEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch models.TodoPatch
		patch.Title = changedString(cmd, "title")
		patch.Description = changedString(cmd, "description")
		patch.Category = changedString(cmd, "category")
		if due := changedString(cmd, "due"); due != nil && strings.TrimSpace(*due) == "" {
			patch.ClearDueDate = true
		} else if due != nil {
			var err error
			if patch.DueDate, err = parseDue(*due, time.Now()); err != nil {
				return err
			}
		}
		return updateTodo(cmd, args[0], patch)
	},
}

var todosDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a todo completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		done := true
		return updateTodo(cmd, args[0], models.TodoPatch{IsCompleted: &done})
	},
}

var todosUndoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a todo not completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		done := false
		return updateTodo(cmd, args[0], models.TodoPatch{IsCompleted: &done})
	},
}

var todosRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		return client.DeleteTodo(ctx, args[0])
	},
}

func updateTodo(cmd *cobra.Command, id string, patch models.TodoPatch) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()
	_, err = client.UpdateTodo(ctx, id, patch)
	return err
}

// changedString returns the flag value only if the user set it.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func noteTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return models.DefaultNoteTitle
	}
	return title
}

func printNotes(w io.Writer, notes []models.Note) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tUPDATED")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, noteTitle(n.Title), n.Category, n.UpdatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func printPlans(w io.Writer, plans []models.Plan) {
	for _, p := range plans {
		fmt.Fprintf(w, "%s  %s\n", p.ID, p.Title)
		for _, t := range p.Tasks {
			fmt.Fprintf(w, "    %s %s  %s\n", checkbox(t.IsCompleted), t.ID, t.Title)
		}
	}
}

func printTodos(w io.Writer, todos []models.Todo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tPLAN\tDUE")
	for _, t := range todos {
		plan, due := "-", "-"
		if t.PlanID != nil {
			plan = *t.PlanID
		}
		if t.DueDate != nil {
			due = t.DueDate.Local().Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, checkbox(t.IsCompleted), t.Title, plan, due)
	}
	_ = tw.Flush()
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func init() {
	notesListCmd.Flags().String("sort", "", "order: updated, created or title")
	notesAddCmd.Flags().String("body", "", "markdown body")
	notesAddCmd.Flags().String("category", "", "category")
	notesEditCmd.Flags().String("title", "", "new title")
	notesEditCmd.Flags().String("body", "", "new body")
	notesEditCmd.Flags().String("category", "", "new category")
	notesCmd.AddCommand(notesListCmd, notesShowCmd, notesAddCmd, notesEditCmd, notesRmCmd)

	plansCmd.AddCommand(plansListCmd, plansAddCmd, plansRenameCmd, plansRmCmd)

	todosListCmd.Flags().String("plan", "", "only todos of this plan")
	todosListCmd.Flags().Bool("standalone", false, "only todos without a plan")
	todosListCmd.MarkFlagsMutuallyExclusive("plan", "standalone")
	todosAddCmd.Flags().String("plan", "", "plan id")
	todosAddCmd.Flags().String("description", "", "description")
	todosAddCmd.Flags().String("category", "", "category")
	todosAddCmd.Flags().String("due", "", `due date, e.g. 2024-09-20 or "next friday"`)
	todosEditCmd.Flags().String("title", "", "new title")
	todosEditCmd.Flags().String("description", "", "new description")
	todosEditCmd.Flags().String("category", "", "new category")
	todosEditCmd.Flags().String("due", "", `new due date; --due "" removes it`)
	todosCmd.AddCommand(todosListCmd, todosAddCmd, todosEditCmd, todosDoneCmd, todosUndoCmd, todosRmCmd)

	rootCmd.AddCommand(loginCmd, logoutCmd, meCmd, notesCmd, plansCmd, todosCmd)
}
