package logging

import (
	"os"

	"github.com/arashthr/markcentral/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide sugared logger. Init must be called once at
// startup; packages that may run before that can fall back to DefaultLogger.
var (
	Logger        *zap.SugaredLogger
	DefaultLogger = zap.NewNop().Sugar()
)

func init() {
	Logger = DefaultLogger
}

func Init(cfg *config.AppConfig) {
	level := parseLevel(cfg.Logging.LogLevel)

	var encoder zapcore.Encoder
	if cfg.Environment == "production" {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	Logger = zap.New(core, zap.AddCaller()).Sugar()
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
