package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

func formatFrame(frame failure.Frame) string {
	return frame.Pkg() + "." + frame.Func() + ":" + strconv.Itoa(frame.Line())
}

func errorStackMarshaller(err error) interface{} {
	if cs, ok := failure.CallStackOf(err); ok {
		frames := cs.Frames()
		res := make([]string, 0, len(frames))
		for _, frame := range frames {
			res = append(res, formatFrame(frame))
		}
		return res
	}
	return nil
}

// Setup 配置全局 zerolog 日志，format 支持 auto/human/json。
func Setup(level, format string) error {
	writer, err := writerFor(format, os.Stdout)
	if err != nil {
		return err
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(parsed)
	zerolog.ErrorStackMarshaler = errorStackMarshaller
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return nil
}

func writerFor(format string, out *os.File) (io.Writer, error) {
	useConsoleWriter := false
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto":
		useConsoleWriter = isatty.IsTerminal(out.Fd())
	case "human":
		useConsoleWriter = true
	case "json":
		useConsoleWriter = false
	default:
		return nil, fmt.Errorf("invalid log format: %s, expected: [auto, json, human]", format)
	}

	if !useConsoleWriter {
		return out, nil
	}
	return zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.TimeFormat = time.RFC3339
		if !isatty.IsTerminal(out.Fd()) {
			w.NoColor = true
		}
	}), nil
}

// GinMiddleware 使用 zerolog 记录每个请求，并透传或生成请求 ID。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			event = event.Str("errors", errs.String())
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
