package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"DataPrep/src/config"
	"DataPrep/src/datapush"
	"DataPrep/src/dataset"
	"DataPrep/src/datasource/database"
	"DataPrep/src/datasource/email"
	"DataPrep/src/datasource/file"
	"DataPrep/src/session"
	"DataPrep/src/storage"
)

type cliOptions struct {
	configDir  string
	configFile string
	envFile    string
	noREPL     bool
}

func parseFlags(args []string, out io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("dataprep", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.configDir, "config-dir", "./config", "配置文件目录")
	fs.StringVar(&opts.configFile, "config", "config.yaml", "配置文件名(.yaml/.yml/.json)")
	fs.StringVar(&opts.envFile, "env", ".env", "环境变量文件名，不存在时忽略")
	fs.BoolVar(&opts.noREPL, "no-repl", false, "不读取标准输入，只运行监听与 Web 接口")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(opts.configDir, opts.configFile, opts.envFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	if level, err := storage.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if err := logger.CheckRotate(cfg); err != nil {
		logger.Warning("日志轮转失败: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	load, closeSource, err := newLoader(ctx, cfg, logger)
	if err != nil {
		logger.Error("初始化数据源失败: " + err.Error())
		logger.Close()
		os.Exit(1)
	}
	defer closeSource()

	ds, err := load()
	if err != nil {
		logger.Error("读取数据集失败: " + err.Error())
		logger.Close()
		os.Exit(1)
	}

	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithPipelineOptions(session.OptionsFromConfig(cfg.Pipeline)...),
	}
	if cfg.Push.Webhook != "" {
		sessOpts = append(sessOpts, session.WithNotifier(datapush.NewPusher(cfg.Push.Webhook, cfg.Push.Secret)))
	}
	sess := session.New(ds, sessOpts...)
	logger.Info(fmt.Sprintf("数据集已加载: %s %s，会话 %s", ds.Provenance().Source, ds.Shape(), sess.ID()))

	watcher := session.NewWatcher(sess, load)
	defer watcher.Stop()
	if cfg.Watch.Enabled {
		startWatching(ctx, cfg, watcher, logger)
	}

	// 启动Web界面显示日志与会话状态
	srv := &http.Server{Addr: cfg.WebAddr, Handler: newMux(logger, sess)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Web 服务启动失败: " + err.Error())
		}
	}()

	if !opts.noREPL {
		go func() {
			repl(ctx, os.Stdin, os.Stdout, sess)
			cancel()
		}()
	}

	waitForShutdown(ctx, logger)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx)
	logger.Close()
}

// sourceKind 按配置选择数据源：数据库查询 > 邮箱 > 文件
func sourceKind(cfg *config.Config) dataset.SourceKind {
	switch {
	case cfg.Database.DSN != "" && cfg.Database.Query != "":
		return dataset.SourceDatabase
	case cfg.Email.Server != "" && cfg.Email.TargetSubject != "":
		return dataset.SourceEmail
	default:
		return dataset.SourceFile
	}
}

func newLoader(ctx context.Context, cfg *config.Config, logger *storage.Logger) (session.Loader, func(), error) {
	readOpts := file.OptionsFromConfig(cfg.Dataset)

	switch sourceKind(cfg) {
	case dataset.SourceDatabase:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		load := func() (*dataset.Dataset, error) {
			return database.LoadQuery(ctx, db, cfg.Database.Query)
		}
		return load, func() { db.Close() }, nil

	case dataset.SourceEmail:
		// 邮箱地址，用户名和密码
		client := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password)
		client.SetLogf(func(format string, args ...interface{}) {
			logger.Warning(fmt.Sprintf(format, args...))
		})
		handler := email.NewDatasetAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir, readOpts)
		handler.SetLogf(func(format string, args ...interface{}) {
			logger.Info(fmt.Sprintf(format, args...))
		})
		return email.NewSource(client, handler).Fetch, func() {}, nil

	default:
		path := cfg.Dataset.Path
		if path == "" {
			return nil, nil, fmt.Errorf("未配置数据集路径")
		}
		load := func() (*dataset.Dataset, error) {
			return file.Load(path, readOpts)
		}
		return load, func() {}, nil
	}
}

func startWatching(ctx context.Context, cfg *config.Config, w *session.Watcher, logger *storage.Logger) {
	interval := cfg.Watch.CheckInterval.Duration()
	kind := sourceKind(cfg)
	if kind == dataset.SourceEmail {
		interval = cfg.Email.CheckInterval.Duration()
	}
	if kind == dataset.SourceFile {
		if err := w.WatchFile(ctx, cfg.Dataset.Path); err != nil {
			logger.Warning(err.Error())
		}
	}
	if interval > 0 {
		if err := w.Schedule(interval); err != nil {
			logger.Error(err.Error())
		}
	}
}

// newMux /logs 持续输出日志，/state 返回当前会话概况
func newMux(logger *storage.Logger, sess *session.Session) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// 创建日志订阅通道
		logChan := logger.Subscribe()
		for {
			select {
			case msg := <-logChan:
				if _, err := fmt.Fprintln(w, msg); err != nil {
					return
				}
				// 刷新响应缓冲区，确保消息立即发送到客户端
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	})
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(sess.Summary()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return mux
}

// repl 逐行读取命令并执行，输入结束或 quit 时返回
func repl(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "quit", "exit":
			return
		}
		if ctx.Err() != nil {
			return
		}

		cmd, err := session.ParseCommand(line)
		if err == nil {
			var res string
			res, err = sess.Execute(ctx, cmd)
			if err == nil {
				fmt.Fprintln(out, res)
			}
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		fmt.Fprint(out, "> ")
	}
}

func waitForShutdown(ctx context.Context, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal: " + sig.String() + ", shutting down...")
	case <-ctx.Done():
		logger.Info("Input closed, shutting down...")
	}
}
