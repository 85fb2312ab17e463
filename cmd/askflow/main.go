// =============================================================================
// askflow 主入口
// =============================================================================
// 使用方法:
//
//	askflow run --question "What is new in Go 1.24?"
//	echo "question" | askflow run --config askflow.yaml
//	askflow run --question "..." --webhook https://hooks.slack.com/services/...
//	askflow health                        # 检查模型与外部工具
//	askflow version                       # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/askflow/config"
	"github.com/BaSui01/askflow/workflow"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(dispatch(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func dispatch(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "run":
		return runCommand(ctx, args[1:], stdin, stdout, stderr)
	case "health":
		return healthCommand(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return exitOK
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitFailure
	}
}

// =============================================================================
// ▶️ run 命令
// =============================================================================

type runOptions struct {
	configPath string
	question   string
	webhook    string
}

func parseRunFlags(args []string, stderr io.Writer) (runOptions, error) {
	var opts runOptions
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.question, "question", "", "Question to answer (default: read from stdin)")
	fs.StringVar(&opts.webhook, "webhook", "", "Webhook URL; enables report delivery")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.question == "" && fs.NArg() > 0 {
		opts.question = strings.Join(fs.Args(), " ")
	}
	return opts, nil
}

// readQuestion 优先使用参数，否则读取标准输入
func readQuestion(flagValue string, stdin io.Reader) (string, error) {
	if q := strings.TrimSpace(flagValue); q != "" {
		return q, nil
	}
	if stdin == nil {
		return "", nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read question from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator(func(c *config.Config) error { return c.Validate() })
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

func runCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseRunFlags(args, stderr)
	if err != nil {
		return exitFailure
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}
	if opts.webhook != "" {
		cfg.Notify.WebhookURL = opts.webhook
		cfg.ResolveNotify()
	}

	question, err := readQuestion(opts.question, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting askflow",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	app, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return exitFailure
	}
	defer app.Close()

	state, err := app.Run(ctx, question)
	printResult(stdout, state)
	if err != nil {
		fmt.Fprintf(stderr, "askflow: %v\n", err)
	}
	return exitCode(err)
}

func printResult(w io.Writer, state workflow.State) {
	if state.Answer != "" {
		fmt.Fprintln(w, state.Answer)
	}
	if state.ReportPath != "" {
		fmt.Fprintf(w, "\nReport: %s\n", state.ReportPath)
	}
	if state.DeliverySent {
		fmt.Fprintln(w, "Report delivered.")
	} else if state.DeliveryError != "" {
		fmt.Fprintf(w, "Report not delivered: %s\n", state.DeliveryError)
	}
}

// exitCode 把流程错误映射为进程退出码。输入无效与步骤失败都返回 1
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func healthCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 10*time.Second, "Health check timeout")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	report := checkHealth(ctx, cfg, zap.NewNop())
	for _, c := range report {
		if c.Err != nil {
			fmt.Fprintf(stdout, "FAIL  %-8s %v\n", c.Name, c.Err)
		} else {
			fmt.Fprintf(stdout, "OK    %-8s %s\n", c.Name, c.Detail)
		}
	}
	if !report.Healthy() {
		return exitFailure
	}
	return exitOK
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "askflow %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `askflow - search, answer and review a question

Usage:
  askflow <command> [options]

Commands:
  run       Answer a question and write a report
  health    Check the model and external tools
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>    Path to configuration file (YAML)
  --question <text>  Question to answer; read from stdin when omitted
  --webhook <url>    Deliver the report to this webhook

Options for 'health':
  --config <path>    Path to configuration file (YAML)
  --timeout <dur>    Overall timeout (default 10s)

Examples:
  askflow run --question "What changed in Go 1.24?"
  echo "What changed in Go 1.24?" | askflow run --config askflow.yaml
  askflow health`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	} else {
		zapConfig.DisableCaller = true
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zapConfig.DisableStacktrace = true
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
