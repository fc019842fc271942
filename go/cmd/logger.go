package cmd

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lunixbochs/coremem/go/models"
)

// NewLogger logs to stderr at info (debug with -v). When a log file is set,
// every message down to debug is also written there as JSON, rotated by
// lumberjack.
func NewLogger(config *models.Config, stderr io.Writer) (*zap.Logger, func() error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if config.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	encConfig := zap.NewDevelopmentEncoderConfig()
	encConfig.TimeKey = ""
	if config.Color {
		encConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encConfig), zapcore.AddSync(stderr), level),
	}
	var rw *lumberjack.Logger
	if config.LogFile != "" {
		rw = &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    64, // megabytes
			MaxAge:     28, // days
			MaxBackups: 4,
			Compress:   true,
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rw), zapcore.DebugLevel))
	}
	log := zap.New(zapcore.NewTee(cores...))
	return log, func() error {
		log.Sync()
		if rw != nil {
			return rw.Close()
		}
		return nil
	}
}
