package goroutine

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/logger"
)

// SafeGo запускает fn в отдельной горутине, перехватывая panic.
// Используется фоновой рассылкой уведомлений: её сбой не должен
// ронять процесс и не влияет на корректность основной операции.
func SafeGo(fn func()) {
	go func() {
		defer logPanic()
		fn()
	}()
}

func logPanic() {
	if r := recover(); r != nil {
		log := logger.Log
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithField("stack", string(debug.Stack())).Errorf("panic в фоновой горутине: %v", r)
	}
}
