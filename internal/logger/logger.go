package logger

import (
	"github.com/sirupsen/logrus"
)

// Log — глобальный логгер приложения. До вызова Init равен nil.
var Log *logrus.Logger

// Init инициализирует логгер с заданным уровнем. Неизвестный уровень
// молча заменяется на info. Формат по умолчанию — JSON.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	Log = logrus.New()
	Log.SetLevel(lvl)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}

// SetTextFormatter переключает логгер на человекочитаемый текстовый
// формат. Используется в development-окружении.
func SetTextFormatter() {
	if Log == nil {
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
