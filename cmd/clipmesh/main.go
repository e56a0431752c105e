package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipmesh/clipmesh"
	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/logging"
	"github.com/clipmesh/clipmesh/orchestrator"
	"github.com/clipmesh/clipmesh/provider"
	"github.com/clipmesh/clipmesh/provider/anthropic"
	"github.com/clipmesh/clipmesh/provider/openai"
	"github.com/clipmesh/clipmesh/recovery"
	"github.com/clipmesh/clipmesh/session"
	"github.com/clipmesh/clipmesh/timeline"
	"github.com/clipmesh/clipmesh/tool"
	"github.com/clipmesh/clipmesh/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "clipmesh",
	Short: "LLM-driven timeline editing assistant",
	Long: `ClipMesh drives a language-model planner against a video-editing timeline
through a fixed catalogue of tools. Proposed tool calls are scheduled through
a dependency graph (parallel reads, serialized writes), failures are repaired
by recovery policies, and with --planning enabled every batch is shown as a
plan awaiting confirmation before anything runs.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CLIPMESH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("provider", "anthropic", "llm provider (anthropic|openai)")
	rootCmd.PersistentFlags().String("model", "", "model override for the selected provider")
	rootCmd.PersistentFlags().Bool("planning", false, "require plan confirmation before executing tool calls")
	rootCmd.PersistentFlags().Int("max-iterations", orchestrator.DefaultMaxIterations, "provider round-trip ceiling per turn")
	rootCmd.PersistentFlags().Duration("tool-timeout", orchestrator.DefaultToolTimeout, "per-tool execution timeout")
	rootCmd.PersistentFlags().String("session-db", "", "sqlite path for transcript persistence (empty: in-memory)")
	rootCmd.PersistentFlags().StringP("session", "s", "default", "session identifier")
	rootCmd.PersistentFlags().String("workflow-file", "", "extra workflow templates (yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	for _, name := range []string{
		"provider", "model", "planning", "max-iterations", "tool-timeout",
		"session-db", "session", "workflow-file", "log-level", "log-format", "json",
	} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(workflowCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(versionCmd())
}

// app bundles everything a command needs. Close releases the session store.
type app struct {
	orch      *orchestrator.Orchestrator
	registry  *tool.Registry
	catalogue *workflow.Catalogue
	store     session.Store
	logger    logging.Logger
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("session store close failed", "error", err)
	}
}

func buildApp() (*app, error) {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     parseLevel(viper.GetString("log-level")),
		Format:    viper.GetString("log-format"),
		Output:    os.Stderr,
		Component: "clipmesh",
	})

	doc := timeline.NewDocument("untitled")
	reg := tool.NewRegistry(tool.WithLogger(logger))
	timeline.RegisterTools(reg, doc)

	p, err := buildProvider()
	if err != nil {
		return nil, err
	}

	cat := workflow.BuiltinCatalogue()
	if path := viper.GetString("workflow-file"); path != "" {
		if err := cat.LoadYAMLFile(path); err != nil {
			return nil, fmt.Errorf("load workflows: %w", err)
		}
	}

	store, err := buildStore()
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(p, reg,
		orchestrator.WithPlanningMode(viper.GetBool("planning")),
		orchestrator.WithMaxIterations(viper.GetInt("max-iterations")),
		orchestrator.WithToolTimeout(viper.GetDuration("tool-timeout")),
		orchestrator.WithRecovery(recovery.DefaultEngine()),
		orchestrator.WithLogger(logger),
	)

	return &app{orch: orch, registry: reg, catalogue: cat, store: store, logger: logger}, nil
}

func buildProvider() (provider.Provider, error) {
	model := viper.GetString("model")
	switch name := viper.GetString("provider"); name {
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			if model != "" {
				o.Model = anthropicsdk.Model(model)
			}
		}), nil
	case "openai":
		return openai.New(func(o *openai.Options) {
			if model != "" {
				o.Model = model
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func buildStore() (session.Store, error) {
	if path := viper.GetString("session-db"); path != "" {
		return session.OpenSQLite(path)
	}
	return session.NewInMemoryStore(), nil
}

func parseLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LogLevelDebug
	case "info":
		return logging.LogLevelInfo
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelWarn
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive editing session",
		Long: `Starts a read-eval loop against the timeline. In planning mode a proposed
plan is shown as a table; respond with /confirm, /cancel, /set <step> key=value
or /remove <step> before anything executes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sid := viper.GetString("session")
			if _, err := a.store.Create(sid); err != nil {
				return err
			}

			fmt.Println("clipmesh chat: /plan /confirm /cancel /set /remove /quit")
			sc := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !sc.Scan() {
					return sc.Err()
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}
				if strings.HasPrefix(line, "/") {
					if err := planCommand(a, line); err != nil {
						fmt.Println("error:", err)
					}
					continue
				}

				res := a.orch.Process(ctx, line)
				renderResult(res)
				persistTurn(a, sid, line, res)
				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}
}

// planCommand dispatches the slash commands that edit or resolve the pending
// plan.
func planCommand(a *app, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/plan":
		plan := a.orch.PendingPlan()
		if plan == nil {
			fmt.Println("no plan pending")
			return nil
		}
		renderPlan(plan)
		return nil
	case "/confirm":
		res := a.orch.ConfirmPlan(context.Background())
		renderResult(res)
		return nil
	case "/cancel":
		return a.orch.CancelPlan()
	case "/remove":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /remove <step-id>")
		}
		return a.orch.RemovePlanStep(fields[1])
	case "/set":
		if len(fields) < 3 {
			return fmt.Errorf("usage: /set <step-id> key=value ...")
		}
		args := map[string]any{}
		for _, kv := range fields[2:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("malformed argument %q", kv)
			}
			args[k] = parseValue(v)
		}
		return a.orch.UpdatePlanStep(fields[1], args)
	default:
		return fmt.Errorf("unknown command %s", fields[0])
	}
}

// parseValue interprets numbers and booleans; anything else stays a string.
func parseValue(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func persistTurn(a *app, sid, userMessage string, res *orchestrator.TurnResult) {
	msgs := []core.Message{core.NewUserMessage(userMessage)}
	if res.Status != orchestrator.StatusPlanned {
		msgs = append(msgs, core.NewAssistantMessage(res.Message, nil))
	}
	if err := a.store.AppendMessages(sid, msgs...); err != nil {
		a.logger.Warn("session persist failed", "session", sid, "error", err)
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Run a single request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res := a.orch.Process(ctx, args[0])
			renderResult(res)
			persistTurn(a, viper.GetString("session"), args[0], res)
			if res.Status == orchestrator.StatusError {
				os.Exit(1)
			}
			return nil
		},
	}
}

func workflowCmd() *cobra.Command {
	wf := &cobra.Command{Use: "workflow", Short: "Catalogue workflows"}
	wf.AddCommand(workflowListCmd())
	wf.AddCommand(workflowShowCmd())
	wf.AddCommand(workflowRunCmd())
	return wf
}

func workflowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if viper.GetBool("json") {
				return printJSON(a.catalogue.Names())
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Name", "Summary", "Steps"})
			for _, name := range a.catalogue.Names() {
				tpl, err := a.catalogue.Get(name)
				if err != nil {
					return err
				}
				tw.AppendRow(table.Row{tpl.Name, tpl.Summary, len(tpl.Steps)})
			}
			tw.Render()
			return nil
		},
	}
}

func workflowShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a workflow template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tpl, err := a.catalogue.Get(args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(tpl)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Step", "Tool", "Arguments", "Summary"})
			for _, s := range tpl.Steps {
				tw.AppendRow(table.Row{s.ID, s.ToolName, compactJSON(s.Arguments), s.Summary})
			}
			tw.Render()
			return nil
		},
	}
}

func workflowRunCmd() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Resolve and execute a workflow template",
		Long: `Applies --set overrides ("stepID.key=value" or "index.key=value"),
validates every step against its argument schema, then executes the resolved
steps through the dependency scheduler.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tpl, err := a.catalogue.Get(args[0])
			if err != nil {
				return err
			}
			overrides, err := parseOverrides(sets)
			if err != nil {
				return err
			}
			steps, err := workflow.Resolve(tpl, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res := a.orch.RunSteps(ctx, "[workflow "+tpl.Name+"]", steps)
			renderResult(res)
			if res.Status == orchestrator.StatusError {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "step argument override, stepID.key=value")
	return cmd
}

// parseOverrides groups "addr.key=value" strings into one Override per step
// address. A numeric address is treated as a step index.
func parseOverrides(sets []string) ([]workflow.Override, error) {
	byAddr := map[string]*workflow.Override{}
	var order []string
	for _, s := range sets {
		addrKey, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("malformed override %q", s)
		}
		addr, key, ok := strings.Cut(addrKey, ".")
		if !ok {
			return nil, fmt.Errorf("override %q needs a step address, e.g. tighten.min_duration=1", s)
		}
		ov, seen := byAddr[addr]
		if !seen {
			ov = &workflow.Override{Arguments: map[string]any{}}
			if n, err := strconv.Atoi(addr); err == nil {
				idx := n
				ov.Index = &idx
			} else {
				ov.StepID = addr
			}
			byAddr[addr] = ov
			order = append(order, addr)
		}
		ov.Arguments[key] = parseValue(value)
	}
	overrides := make([]workflow.Override, 0, len(order))
	for _, addr := range order {
		overrides = append(overrides, *byAddr[addr])
	}
	return overrides, nil
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			defs := a.registry.Definitions()
			if viper.GetBool("json") {
				return printJSON(defs)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Tool", "Description"})
			for _, d := range defs {
				tw.AppendRow(table.Row{d.Name, d.Description})
			}
			tw.Render()
			return nil
		},
	}
}

func sessionCmd() *cobra.Command {
	sess := &cobra.Command{Use: "session", Short: "Stored transcripts"}
	sess.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored transcript for the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			s, err := store.Get(viper.GetString("session"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(s)
			}
			for _, m := range s.Messages {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format(time.RFC3339), m.Role, m.Content)
			}
			return nil
		},
	})
	return sess
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("clipmesh", clipmesh.Version)
		},
	}
}

func renderResult(res *orchestrator.TurnResult) {
	if viper.GetBool("json") {
		_ = printJSON(res)
		return
	}
	if res.Status == orchestrator.StatusPlanned && res.Plan != nil {
		fmt.Println(res.Message)
		renderPlan(res.Plan)
		return
	}
	for _, ec := range res.ToolResults {
		marker := "ok"
		if !ec.Result.Success {
			marker = "failed"
		}
		fmt.Printf("  %s %s: %s\n", marker, ec.Call.Name, ec.Result.Message)
	}
	if res.ErrorCode != "" {
		fmt.Printf("[%s] %s\n", res.ErrorCode, res.Message)
		return
	}
	fmt.Println(res.Message)
}

func renderPlan(plan *core.ExecutionPlan) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"#", "Step", "Tool", "Arguments"})
	for i, s := range plan.Steps {
		tw.AppendRow(table.Row{i, s.ID, s.ToolName, compactJSON(s.Arguments)})
	}
	tw.Render()
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
