package logger

import (
	"os"
	"strings"

	"github.com/op/go-logging"
)

const format = `%{time:2006-01-02 15:04:05.000} %{level:.5s} [%{module}] %{message}`

// Init installs the shared backend; every package logger created with
// logging.MustGetLogger writes through it.
func Init(level string) error {
	backend := logging.NewLogBackend(os.Stdout, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(format))
	leveled := logging.AddModuleLevel(formatted)

	lvl, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		return err
	}
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return nil
}
