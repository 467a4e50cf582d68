package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. InitLogger must run before anything
// logs through it; tests get a no-op fallback.
var Log *zap.Logger

func init() {
	Log = zap.NewNop()
}

type Options struct {
	Level    string
	Filename string
	MaxSize  int // megabytes
	MaxAge   int // days
	Compress bool
}

// InitLogger tees JSON output to a rotating file and console output to
// stdout.
func InitLogger(opts Options) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename: opts.Filename,
		MaxSize:  opts.MaxSize,
		MaxAge:   opts.MaxAge,
		Compress: opts.Compress,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), level),
	)

	Log = zap.New(core, zap.AddCaller())
	return nil
}
