package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"
)

const logDirEnvVar = "ITGURU_LOG_DIR"

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Category selects which log file a logger writes to.
type Category string

const (
	CategoryService Category = "service"
	CategoryLLM     Category = "llm"
)

var (
	categoryMu      sync.Mutex
	categoryLoggers = make(map[Category]*FileLogger)

	bearerTokenPattern   = regexp.MustCompile(`(?i)(Bearer\s+)[A-Za-z0-9\-\._~\+/]{8,}=*`)
	sensitiveKeyPattern  = regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret)["']?\s*[:=]\s*["']?)[A-Za-z0-9\-\._]{8,}(["']?)`)
	redactionPlaceholder = "[REDACTED]"
)

// FileLogger writes timestamped log lines to a per-category file under
// $ITGURU_LOG_DIR (default: the user home directory).
type FileLogger struct {
	file       *os.File
	logger     *log.Logger
	level      Level
	mu         sync.Mutex
	component  string
	enableFile bool
	category   Category
	logID      string
}

func newCategorizedLogger(category Category, component string) *FileLogger {
	base := getOrCreateCategoryLogger(category)
	return &FileLogger{
		file:       base.file,
		logger:     base.logger,
		level:      base.level,
		component:  component,
		enableFile: base.enableFile,
		category:   category,
	}
}

func getOrCreateCategoryLogger(category Category) *FileLogger {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if logger, ok := categoryLoggers[category]; ok {
		return logger
	}

	logger := newFileLogger(LevelDebug, category)
	categoryLoggers[category] = logger
	return logger
}

func newFileLogger(level Level, category Category) *FileLogger {
	l := &FileLogger{
		level:      level,
		enableFile: true,
		category:   category,
	}

	logDir, err := resolveLogDirectory()
	if err != nil {
		log.Printf("Failed to resolve log directory: %v", err)
		return l
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("Failed to create log directory %s: %v", logDir, err)
		return l
	}

	logPath := filepath.Join(logDir, logFileName(category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Failed to open log file: %v", err)
		return l
	}

	l.file = file
	l.logger = log.New(file, "", 0) // We format ourselves.
	return l
}

func resolveLogDirectory() (string, error) {
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

func logFileName(category Category) string {
	switch category {
	case CategoryLLM:
		return "itguru-llm.log"
	default:
		return "itguru-service.log"
	}
}

// SetLevel sets the minimum log level.
func (l *FileLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the log file.
func (l *FileLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithLogID returns a shallow copy of the logger that tags log lines with a log id.
func (l *FileLogger) WithLogID(logID string) Logger {
	if l == nil {
		return Nop()
	}
	if strings.TrimSpace(logID) == "" {
		return l
	}
	return &FileLogger{
		file:       l.file,
		logger:     l.logger,
		level:      l.level,
		component:  l.component,
		enableFile: l.enableFile,
		category:   l.category,
		logID:      logID,
	}
}

func (l *FileLogger) log(level Level, format string, args ...any) {
	if level < l.level || !l.enableFile {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [SERVICE] [Component] file.go:123 - Message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	component := l.component
	if component == "" {
		component = "ITGURU"
	}
	category := strings.ToUpper(string(l.category))
	if category == "" {
		category = "SERVICE"
	}

	message := fmt.Sprintf(format, args...)
	var logLine string
	if logID := strings.TrimSpace(l.logID); logID != "" {
		logLine = fmt.Sprintf("%s [%s] [%s] [%s] [log_id=%s] %s:%d - %s\n",
			timestamp, levelToString(level), category, component, logID, file, line, message)
	} else {
		logLine = fmt.Sprintf("%s [%s] [%s] [%s] %s:%d - %s\n",
			timestamp, levelToString(level), category, component, file, line, message)
	}

	sanitized := sanitizeLogLine(logLine)
	if l.logger != nil {
		l.logger.Print(sanitized)
	}
	if os.Getenv("ITGURU_SERVER_MODE") == "deploy" {
		fmt.Print(sanitized)
	}
}

func (l *FileLogger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *FileLogger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *FileLogger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *FileLogger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

func levelToString(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// sanitizeLogLine masks credentials that would otherwise leak into log files.
func sanitizeLogLine(line string) string {
	sanitized := bearerTokenPattern.ReplaceAllString(line, "${1}"+redactionPlaceholder)
	sanitized = sensitiveKeyPattern.ReplaceAllString(sanitized, "${1}"+redactionPlaceholder+"${2}")
	return sanitized
}

// WithLogID returns a logger that tags log lines with a log id when supported.
func WithLogID(logger Logger, logID string) Logger {
	if IsNil(logger) {
		return Nop()
	}
	if logID == "" {
		return logger
	}
	type logIDCapable interface {
		WithLogID(string) Logger
	}
	if capable, ok := logger.(logIDCapable); ok {
		return capable.WithLogID(logID)
	}
	return logger
}
