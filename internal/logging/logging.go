package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/UkralStul/blog-state/internal/oops"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler
}

// Setup настраивает глобальный логгер и возвращает его.
// pretty включает человекочитаемый вывод вместо JSON.
func Setup(level string, pretty bool) (zerolog.Logger, error) {
	return SetupWriter(os.Stderr, level, pretty)
}

// SetupWriter - то же, что Setup, но с явным приемником вывода.
func SetupWriter(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger, nil
}

// GlobalLogger возвращает логгер процесса.
func GlobalLogger() *zerolog.Logger {
	return &log.Logger
}

// LogPanics логирует панику и превращает ее в ошибку в *errp, если errp не nil.
// Вызывать через defer с именованным результатом, иначе процесс завершится успешно.
func LogPanics(logger *zerolog.Logger, errp *error) {
	if r := recover(); r != nil {
		LogPanicValue(logger, r, "recovered from panic")
		if errp != nil {
			if err, ok := r.(error); ok {
				*errp = oops.New(err, "recovered from panic")
			} else {
				*errp = oops.New(nil, "recovered from panic: %v", r)
			}
		}
	}
}

func LogPanicValue(logger *zerolog.Logger, val interface{}, msg string) {
	if logger == nil {
		logger = GlobalLogger()
	}

	if err, ok := val.(error); ok {
		l := logger.Error().Err(err)
		if _, ok := err.(*oops.Error); !ok {
			l = l.Interface(zerolog.ErrorStackFieldName, oops.Trace())
		}
		l.Msg(msg)
	} else {
		logger.Error().
			Interface("recovered", val).
			Interface(zerolog.ErrorStackFieldName, oops.Trace()).
			Msg(msg)
	}
}
