// appforge generates, deploys and iterates on small containerized web apps.
// Every change is committed to a version ledger and can be rolled back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"appforge/internal/application/command"
	"appforge/internal/application/command/cleanup_backups"
	"appforge/internal/application/command/create_app"
	"appforge/internal/application/command/improve_app"
	"appforge/internal/application/command/retry_build"
	"appforge/internal/application/command/rollback_app"
	"appforge/internal/application/query"
	"appforge/internal/application/query/get_app"
	"appforge/internal/application/query/get_apps_status"
	"appforge/internal/application/query/get_diff"
	"appforge/internal/application/query/get_versions"
	"appforge/internal/backup"
	"appforge/internal/build"
	"appforge/internal/config"
	"appforge/internal/deploy"
	"appforge/internal/domain/model"
	"appforge/internal/generator"
	"appforge/internal/health"
	"appforge/internal/infra/docker"
	"appforge/internal/ledger"
	"appforge/internal/orchestrator"
	"appforge/pkg/cqrs"
	"appforge/pkg/log"
)

var version = "dev"

var configPath string

// runtime is the fully wired application: config, ledger and the two buses.
type runtime struct {
	cfg      *config.Config
	store    *ledger.Store
	commands *cqrs.CommandBus
	queries  *cqrs.QueryBus
}

// newRuntime boots the stack. The returned close func drains in-flight
// commands and flushes the ledger.
func newRuntime(ctx context.Context) (*runtime, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log.InitLog(cfg.LogLevel)

	store, err := ledger.Open(cfg.GetLedgerPath(), cfg.BasePort)
	if err != nil {
		return nil, nil, err
	}

	engine, err := docker.NewEngine(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("container engine unavailable: %w", err)
	}

	gen := generator.NewOpenAIGenerator(cfg.Generator)
	checker := health.NewChecker(engine)
	orch := orchestrator.New(cfg, store,
		backup.NewManager(cfg),
		build.NewBuilder(cfg, engine),
		deploy.NewDeployer(cfg, engine, checker),
		engine, gen)

	commands := cqrs.NewCommandBus(ctx)
	queries := cqrs.NewQueryBus()
	if err := command.RegisterCommandHandlers(ctx, commands, orch); err != nil {
		return nil, nil, err
	}
	if err := query.RegisterQueryHandlers(ctx, queries, store, engine); err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		commands.Shutdown()
		commands.WaitForCompletion()
		if err := store.Close(); err != nil {
			log.Error("failed to flush ledger on shutdown", "error", err)
		}
	}
	return &runtime{cfg: cfg, store: store, commands: commands, queries: queries}, closeFn, nil
}

// runWith boots the stack for one CLI invocation and tears it down after.
func runWith(fn func(ctx context.Context, rt *runtime, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, closeFn, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, rt, args)
	}
}

func (rt *runtime) getApp(name string) (*model.App, error) {
	res, err := rt.queries.Dispatch(get_app.GetAppQuery{AppName: name})
	if err != nil {
		return nil, err
	}
	return res.(*model.App), nil
}

// printActive reports the app's active version and URL on stdout.
func (rt *runtime) printActive(name string) error {
	app, err := rt.getApp(name)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s is live at %s\n", app.Name, app.CurrentVersion, app.URL())
	return nil
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <app> <prompt>",
		Short: "Generate a new app from a prompt and deploy it as v1.0.0",
		Args:  cobra.MinimumNArgs(2),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			name, prompt := args[0], strings.Join(args[1:], " ")
			if err := rt.commands.Dispatch(create_app.CreateAppCommand{AppName: name, Prompt: prompt}); err != nil {
				return err
			}
			return rt.printActive(name)
		}),
	}
}

func newImproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "improve <app> <intent>",
		Short: "Apply an improvement to the app's active version",
		Long:  "Runs one improvement cycle. On failure the previously active version keeps serving.",
		Args:  cobra.MinimumNArgs(2),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			name, intent := args[0], strings.Join(args[1:], " ")
			if err := rt.commands.Dispatch(improve_app.ImproveAppCommand{AppName: name, Intent: intent}); err != nil {
				return err
			}
			return rt.printActive(name)
		}),
	}
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <app> <version>",
		Short: "Re-activate a previously committed version",
		Args:  cobra.ExactArgs(2),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			if err := rt.commands.Dispatch(rollback_app.RollbackAppCommand{AppName: args[0], TargetVersion: args[1]}); err != nil {
				return err
			}
			return rt.printActive(args[0])
		}),
	}
}

func newRetryBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-build <app>",
		Short: "Rebuild and redeploy the active version from the live directory",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			if err := rt.commands.Dispatch(retry_build.RetryBuildCommand{AppName: args[0]}); err != nil {
				return err
			}
			return rt.printActive(args[0])
		}),
	}
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <app>",
		Short: "Prune old backup snapshots beyond the retention limit",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			if err := rt.commands.Dispatch(cleanup_backups.CleanupBackupsCommand{AppName: args[0]}); err != nil {
				return err
			}
			fmt.Printf("backups of %s pruned to the %d most recent\n", args[0], rt.cfg.KeepBackups)
			return nil
		}),
	}
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <app>",
		Short: "List the version history of an app",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			res, err := rt.queries.Dispatch(get_versions.GetVersionsQuery{AppName: args[0]})
			if err != nil {
				return err
			}
			for _, v := range res.([]*model.Version) {
				marker := " "
				if v.IsActive {
					marker = "*"
				}
				fmt.Printf("%s %-10s %-8s %s  files=%d changed=%d added=%d removed=%d\n",
					marker, v.Version, v.DockerStatus, v.CreatedAt.Format("2006-01-02 15:04:05"),
					len(v.Files), len(v.ChangedFiles), len(v.AddedFiles), len(v.RemovedFiles))
			}
			return nil
		}),
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <app> [from] [to]",
		Short: "Show the file changes between two versions",
		Long: "With no versions, compares the active version against its parent. With one\n" +
			"version, compares it against its parent. With two, compares from against to.",
		Args: cobra.RangeArgs(1, 3),
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			q := get_diff.GetDiffQuery{AppName: args[0]}
			switch len(args) {
			case 2:
				q.ToVersion = args[1]
			case 3:
				q.FromVersion = args[1]
				q.ToVersion = args[2]
			}
			res, err := rt.queries.Dispatch(q)
			if err != nil {
				return err
			}
			d := res.(*get_diff.VersionDiff)
			from := d.From
			if from == "" {
				from = "(initial)"
			}
			fmt.Printf("%s -> %s\n", from, d.To)
			for _, p := range d.Changed {
				fmt.Printf("  M %s\n", p)
			}
			for _, p := range d.Added {
				fmt.Printf("  A %s\n", p)
			}
			for _, p := range d.Removed {
				fmt.Printf("  D %s\n", p)
			}
			return nil
		}),
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every app, its active version and container state",
		Args:  cobra.NoArgs,
		RunE: runWith(func(ctx context.Context, rt *runtime, args []string) error {
			res, err := rt.queries.Dispatch(get_apps_status.GetAppsStatusQuery{})
			if err != nil {
				return err
			}
			statuses := res.([]get_apps_status.AppStatus)
			if len(statuses) == 0 {
				fmt.Println("no apps yet; run 'appforge create'")
				return nil
			}
			for _, s := range statuses {
				up := "down"
				if s.ContainerUp {
					up = "up"
				}
				fmt.Printf("%-20s %-10s %-8s container=%s (%s)  %s\n",
					s.Name, s.Version, s.DockerStatus, s.ContainerName, up, s.URL)
			}
			return nil
		}),
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "appforge",
		Short: "Generate, deploy and version containerized web apps",
		Long: `appforge turns prompts into running containerized web apps.
Every improvement becomes a new version; any version can be rolled back to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/appforge/config.yml", "path to the configuration file")

	rootCmd.AddCommand(
		newCreateCmd(),
		newImproveCmd(),
		newRollbackCmd(),
		newRetryBuildCmd(),
		newCleanupCmd(),
		newVersionsCmd(),
		newDiffCmd(),
		newStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
