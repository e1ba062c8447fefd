package logging

import (
	"os"
	"path"
	"time"

	"github.com/DeveloperOl/lespas/common/config"
	"github.com/lestrrat/go-file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

const logFileName = "lespas-media.log"

type utcFormatter struct {
	logrus.Formatter
}

func (f utcFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Time = entry.Time.UTC()
	return f.Formatter.Format(entry)
}

// fieldsHook stamps every entry with the fields that identify this process,
// unless the entry already carries them.
type fieldsHook struct {
	fields logrus.Fields
}

func (h fieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h fieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

func SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}

// Setup points the standard logger at stdout and, when a log directory is
// configured, at a daily rotated file in it. fields are added to every entry.
func Setup(c config.GeneralConfig, fields logrus.Fields) error {
	if err := SetLevel(c.LogLevel); err != nil {
		return err
	}

	var lineFormatter logrus.Formatter
	if c.JsonLogs {
		lineFormatter = &logrus.JSONFormatter{
			TimestampFormat:  "2006-01-02 15:04:05.000 Z07:00",
			DisableTimestamp: false,
		}
	} else {
		lineFormatter = &logrus.TextFormatter{
			TimestampFormat:  "2006-01-02 15:04:05.000 Z07:00",
			FullTimestamp:    true,
			ForceColors:      c.LogColors,
			DisableColors:    !c.LogColors,
			DisableTimestamp: false,
			QuoteEmptyFields: true,
		}
	}
	formatter := &utcFormatter{lineFormatter}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(os.Stdout)
	if len(fields) > 0 {
		logrus.AddHook(fieldsHook{fields: fields})
	}

	if c.LogDirectory == "" || c.LogDirectory == "-" {
		return nil
	}
	_ = os.MkdirAll(c.LogDirectory, os.ModePerm)

	retention := c.LogRetentionDays
	if retention <= 0 {
		retention = 14
	}
	logFile := path.Join(c.LogDirectory, logFileName)
	writer, err := rotatelogs.New(
		logFile+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logFile),
		rotatelogs.WithMaxAge(time.Duration(retention)*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return err
	}

	logrus.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, formatter))

	return nil
}
