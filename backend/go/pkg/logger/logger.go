package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger 是对 logrus 的封装，以提供更方便的结构化日志记录功能。
// With* 方法返回新的 Logger，不修改原实例，可以安全地在请求之间共享。
type Logger struct {
	entry *logrus.Entry
}

// Init 初始化全局的 logrus 配置。
// level: 日志级别字符串 (e.g. "info", "debug")，无法解析时回退到 info。
func Init(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(ParseLevel(level))
}

// ParseLevel 将配置中的级别字符串转换为 logrus.Level。
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// New 创建一个新的 Logger 实例，预设 service_name 字段。
func New(serviceName string) *Logger {
	return &Logger{
		entry: logrus.WithField("service_name", serviceName),
	}
}

// Discard 返回一个丢弃所有输出的 Logger，测试中使用。
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(l)}
}

// WithField 添加单个字段。
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields 添加多个字段。
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithError 将错误信息添加到日志条目中。
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithPayload 将自定义的业务数据添加到日志条目中。
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

// Info 记录一条信息级别的日志。
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn 记录一条警告级别的日志。
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error 记录一条错误级别的日志。
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug 记录一条调试级别的日志。
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal 记录一条致命错误级别的日志，并终止程序。
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
