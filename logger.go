package reagentcrawler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

// Logger is the logging surface used across a site crawl.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Summary(format string, args ...interface{})
	Fatal(format string, args ...interface{})
	Html(html, url, msg string)
}

// defaultLogger writes emoji-prefixed lines to a per-site log file and stdout,
// optionally mirroring them to Cloud Logging.
type defaultLogger struct {
	logger   *log.Logger
	siteName string
	debug    bool
	dumpHtml bool
	cloud    *logging.Logger
	client   *logging.Client
}

func newDefaultLogger(siteName string, config *configService) *defaultLogger {
	currentDate := time.Now().Format("2006-01-02")
	directory := filepath.Join("storage", "logs", siteName)
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logFilePath := filepath.Join(directory, currentDate+"_application.log")
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	multiWriter := io.MultiWriter(file, os.Stdout)

	l := &defaultLogger{
		logger:   log.New(multiWriter, "⏱️ ", log.LstdFlags),
		siteName: siteName,
		debug:    config.GetBool("DEBUG"),
		dumpHtml: true,
	}
	if config.GetBool("CLOUD_LOGGING") {
		l.attachCloudLogging(config)
	}
	return l
}

// newWriterLogger logs to w only; html dumps are disabled.
func newWriterLogger(siteName string, w io.Writer) *defaultLogger {
	return &defaultLogger{
		logger:   log.New(w, "", 0),
		siteName: siteName,
		debug:    true,
	}
}

func (l *defaultLogger) attachCloudLogging(config *configService) {
	projectID := config.EnvString("GCP_PROJECT_ID")
	if projectID == "" {
		l.Warn("CLOUD_LOGGING is enabled but GCP_PROJECT_ID is empty")
		return
	}
	var opts []option.ClientOption
	if path := config.EnvString("GCP_CREDENTIALS_PATH"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := logging.NewClient(context.Background(), projectID, opts...)
	if err != nil {
		l.Error("Failed to create cloud logging client: %v", err)
		return
	}
	l.client = client
	l.cloud = client.Logger("reagentcrawler-" + l.siteName)
}

func (l *defaultLogger) forward(severity logging.Severity, msg string) {
	if l.cloud == nil {
		return
	}
	l.cloud.Log(logging.Entry{
		Severity: severity,
		Payload:  msg,
		Labels:   map[string]string{"site": l.siteName},
	})
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.logger.Printf("🐞 DEBUG: "+format, args...)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.logger.Printf("📢 INFO: "+format, args...)
	l.forward(logging.Info, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	l.logger.Printf("⚠️ WARN: "+format, args...)
	l.forward(logging.Warning, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.logger.Printf("🛑 ERROR: "+format, args...)
	l.forward(logging.Error, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Summary(format string, args ...interface{}) {
	l.logger.Printf("📊 SUMMARY: "+format, args...)
	l.forward(logging.Notice, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Fatal(format string, args ...interface{}) {
	l.forward(logging.Critical, fmt.Sprintf(format, args...))
	l.Close()
	l.logger.Fatalf("🚨 FATAL: "+format, args...)
}

func (l *defaultLogger) Html(html, url, msg string) {
	l.Error(msg)
	if !l.dumpHtml {
		return
	}
	if err := writePageContentToFile(l.siteName, html, url, msg); err != nil {
		l.logger.Printf("⚛️ HTML: %v", err)
	}
}

// Close flushes buffered cloud entries.
func (l *defaultLogger) Close() {
	if l.client == nil {
		return
	}
	if err := l.client.Close(); err != nil {
		l.logger.Printf("🛑 ERROR: failed to flush cloud logs: %v", err)
	}
	l.client = nil
	l.cloud = nil
}
