package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/config"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold revise.toml and the data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.ScaffoldProject(dir)
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All files already exist, nothing to create.")
				return nil
			}
			for _, path := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			}
			return nil
		},
	}
}

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List catalogued dataset files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			kinds := []catalog.Kind{catalog.Revision, catalog.Language, catalog.Mistakes}
			if k, _ := cmd.Flags().GetString("kind"); k != "" {
				kind, err := catalog.ParseKind(k)
				if err != nil {
					return err
				}
				kinds = []catalog.Kind{kind}
			}
			var files []*catalog.FileDescriptor
			for _, kind := range kinds {
				list, err := a.Catalog.SortedByKind(kind)
				if err != nil {
					return err
				}
				files = append(files, list...)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatFiles(files))
			return nil
		},
	}
	cmd.Flags().String("kind", "", "only list one kind (rev, lng, mst)")
	return cmd
}

func findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <pattern>",
		Short: "Find language files whose name matches a regular expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			exclude, _ := cmd.Flags().GetString("exclude")
			paths, err := a.Catalog.MatchPattern(args[0], exclude)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().String("exclude", "", "skip languages matching this expression")
	return cmd
}

func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show what to study next",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			recs, err := a.Engine.Recommendations()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatRecommendations(recs))
			return nil
		},
	}
}

func efcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "efc",
		Short: "Show the retention score of every revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			due, _ := cmd.Flags().GetBool("due")
			rows, err := a.Engine.Table(due)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatEFC(rows, due))
			return nil
		},
	}
	cmd.Flags().Bool("due", false, "estimate when each revision falls below the threshold")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [signature]",
		Short: "Summarize the review ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			if _, err := a.Ledger.Refresh(); err != nil {
				return err
			}
			v := a.Ledger.View()
			if langs, _ := cmd.Flags().GetStringSlice("lang"); len(langs) > 0 {
				v = v.Languages(langs...)
			}
			if days, _ := cmd.Flags().GetInt("days"); days > 0 {
				v = v.Since(time.Now().AddDate(0, 0, -days))
			}
			sig := ""
			if len(args) == 1 {
				sig = args[0]
			}
			fmt.Fprint(cmd.OutOrStdout(), formatStats(v, sig, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringSlice("lang", nil, "only count these languages")
	cmd.Flags().Int("days", 0, "only count the last N days (0 = all)")
	return cmd
}

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <file> <new-name>",
		Short: "Rename a dataset file and its ledger rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			fd, err := a.Resolve(args[0])
			if err != nil {
				return err
			}
			old := fd.Basename
			n, err := a.Rename(fd, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s (%d ledger rows updated)\n", old, args[1], n)
			return nil
		},
	}
}

func shuffleSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shuffle-seed [file]",
		Short: "Print the last shuffle seed, or replay it on a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			seed, ok := a.State.Seed()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No shuffle recorded yet")
				return nil
			}
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), seed)
				return nil
			}
			fd, err := a.Resolve(args[0])
			if err != nil {
				return err
			}
			t := a.Store.Load(fd)
			if _, err := a.Store.Shuffle(&seed); err != nil {
				return err
			}
			for _, row := range t.Rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", row[0], row[1])
			}
			return nil
		},
	}
}

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Study interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, true)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			} else if last, _ := cmd.Flags().GetBool("last"); last {
				st, err := a.State.Load()
				if err != nil {
					return err
				}
				if st.LastActive == "" {
					return fmt.Errorf("no file reviewed yet")
				}
				name = st.LastActive
			}
			ctx, cancel := signalContext()
			defer cancel()
			return runReview(ctx, a, name)
		},
	}
	cmd.Flags().Bool("last", false, "reopen the last reviewed file")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow external ledger and dataset changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (ctrl+c to stop)\n", a.Config.DataRoot())
			return runWatch(ctx, a, cmd.OutOrStdout())
		},
	}
}
