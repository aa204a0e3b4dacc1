package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/pkg/config"
	"github.com/vigil-dev/vigil/pkg/journal"
	"github.com/vigil-dev/vigil/pkg/lifecycle"
	"github.com/vigil-dev/vigil/pkg/pidfile"
	"github.com/vigil-dev/vigil/pkg/tasks"
	"github.com/vigil-dev/vigil/pkg/types"
	"github.com/vigil-dev/vigil/pkg/vault"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and vault layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(homeDir)
			if err := config.Init(path); err != nil {
				return err
			}
			cfg := loadConfig()
			if _, err := openVault(cfg); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("initialized ") + dimStyle.Render(homeDir))
			fmt.Println(dimStyle.Render("config: ") + path)
			fmt.Println(dimStyle.Render("vault:  ") + cfg.VaultPath)
			return nil
		},
	}
}

func noteCmd() *cobra.Command {
	var category string
	var tags []string

	cmd := &cobra.Command{
		Use:   "note [text]",
		Short: "Append a manual entry to today's log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault(loadConfig())
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if err := journal.New(v).Append(text, types.SourceNote, category, tags); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("noted ") + truncate(text, 70))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "life", "entry category")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tags to attach")
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tracked tasks",
	}
	cmd.AddCommand(taskAddCmd(), taskListCmd(), taskDoneCmd(), taskRmCmd())
	return cmd
}

func openTasks() (*tasks.Store, error) {
	v, err := openVault(loadConfig())
	if err != nil {
		return nil, err
	}
	return tasks.NewStore(v), nil
}

func taskAddCmd() *cobra.Command {
	var due, label string

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTasks()
			if err != nil {
				return err
			}
			id, err := ts.Add(strings.Join(args, " "), due, label)
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render("added ") + accentStyle.Render(id))
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (today, tomorrow, or YYYY-MM-DD)")
	cmd.Flags().StringVar(&label, "label", "", "free-form label")
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTasks()
			if err != nil {
				return err
			}
			active := ts.ListActive()
			if len(active) == 0 {
				fmt.Println(dimStyle.Render("no active tasks"))
				return nil
			}
			for _, t := range active {
				line := accentStyle.Render(t.ID) + "  " + truncate(t.Text, 60)
				if t.Due != "" {
					line += dimStyle.Render("  due " + t.Due)
				}
				if t.LastActivity != "" {
					line += dimStyle.Render("  last " + t.LastActivity)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a task complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTasks()
			if err != nil {
				return err
			}
			if !ts.Complete(args[0]) {
				return fmt.Errorf("no active task matching %q", args[0])
			}
			fmt.Println(okStyle.Render("done ") + args[0])
			return nil
		},
	}
}

func taskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTasks()
			if err != nil {
				return err
			}
			if !ts.Remove(args[0]) {
				return fmt.Errorf("no task matching %q", args[0])
			}
			fmt.Println(okStyle.Render("removed ") + args[0])
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log [day]",
		Short: "Show a daily log (defaults to today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault(loadConfig())
			if err != nil {
				return err
			}
			day := time.Now()
			if len(args) == 1 {
				parsed, err := time.Parse(vault.DateFormat, args[0])
				if err != nil {
					return fmt.Errorf("day must be YYYY-MM-DD")
				}
				day = parsed
			}
			content, ok := journal.New(v).Read(day)
			if !ok {
				fmt.Println(dimStyle.Render("no log for " + day.Format(vault.DateFormat)))
				return nil
			}
			fmt.Println(accentStyle.Render(day.Format(vault.DateFormat)))
			fmt.Println(content)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault(loadConfig())
			if err != nil {
				return err
			}
			results := v.Search(strings.Join(args, " "), nil, limit)
			if len(results) == 0 {
				fmt.Println(dimStyle.Render("no matches"))
				return nil
			}
			for _, r := range results {
				fmt.Println(accentStyle.Render(r.Key))
				fmt.Println("  " + dimStyle.Render(truncate(r.Snippet, 100)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Archive expired vault entries now",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault(loadConfig())
			if err != nil {
				return err
			}
			result := lifecycle.NewJanitor(lifecycle.NewManager(v), time.Hour).RunOnce()
			fmt.Printf("%s scanned %d, archived %d\n",
				okStyle.Render("sweep"), result.Scanned, result.Archived)
			return nil
		},
	}
}

func tagCmd() *cobra.Command {
	var ttlDays int

	cmd := &cobra.Command{
		Use:   "tag [key] [P0|P1|P2]",
		Short: "Set a vault entry's retention priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority := vault.Priority(strings.ToUpper(args[1]))
			switch priority {
			case vault.PriorityP0, vault.PriorityP1, vault.PriorityP2:
			default:
				return fmt.Errorf("priority must be P0, P1, or P2")
			}

			v, err := openVault(loadConfig())
			if err != nil {
				return err
			}
			if !lifecycle.NewManager(v).Tag(args[0], priority, ttlDays) {
				return fmt.Errorf("no vault entry at %q", args[0])
			}

			style, ok := categoryTint[string(priority)]
			if !ok {
				style = dimStyle
			}
			fmt.Println(style.Render(string(priority)) + "  " + args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&ttlDays, "ttl", -1, "days until expiry (default by priority)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			url := "http://" + cfg.Service.Addr() + "/status"

			pid, pidOK := pidfile.Read(pidfile.Path(homeDir))

			client := &http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				if pidOK {
					fmt.Println(warnStyle.Render("daemon unreachable") + dimStyle.Render(fmt.Sprintf(" (pid %d, %s)", pid, cfg.Service.Addr())))
				} else {
					fmt.Println(warnStyle.Render("daemon not running") + dimStyle.Render(" ("+cfg.Service.Addr()+")"))
				}
				return nil
			}
			defer resp.Body.Close()

			var status struct {
				Pending int `json:"pending"`
				Janitor struct {
					LastRun       time.Time `json:"last_run"`
					LastArchived  int       `json:"last_archived"`
					TotalArchived int       `json:"total_archived"`
				} `json:"janitor"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("bad status response: %w", err)
			}

			running := cfg.Service.Addr()
			if pidOK {
				running = fmt.Sprintf("pid %d, %s", pid, running)
			}
			fmt.Println(okStyle.Render("daemon running ") + dimStyle.Render(running))
			fmt.Printf("  pending items:  %d\n", status.Pending)
			if status.Janitor.LastRun.IsZero() {
				fmt.Println("  last sweep:     " + dimStyle.Render("never"))
			} else {
				fmt.Printf("  last sweep:     %s (archived %d)\n",
					status.Janitor.LastRun.Format("15:04:05"), status.Janitor.LastArchived)
			}
			fmt.Printf("  total archived: %d\n", status.Janitor.TotalArchived)
			return nil
		},
	}
}
