package controller

import "log/slog"

// DefaultTitle is the notification title used by the controller.
const DefaultTitle = "WaterCooler"

// Presenter is the user-facing surface the controller reports to.
type Presenter interface {
	// Notify shows a status message.
	Notify(message, title string)
	// SetConnectionIndicator reflects whether a device is connected.
	SetConnectionIndicator(connected bool)
	// Stop tears the presentation down on exit.
	Stop()
}

// MultiPresenter fans every call out to each presenter in order.
type MultiPresenter []Presenter

func (m MultiPresenter) Notify(message, title string) {
	for _, p := range m {
		p.Notify(message, title)
	}
}

func (m MultiPresenter) SetConnectionIndicator(connected bool) {
	for _, p := range m {
		p.SetConnectionIndicator(connected)
	}
}

func (m MultiPresenter) Stop() {
	for _, p := range m {
		p.Stop()
	}
}

// LogPresenter reports status through slog.
type LogPresenter struct {
	Logger *slog.Logger
}

func (p LogPresenter) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p LogPresenter) Notify(message, title string) {
	p.logger().Info(message, "title", title)
}

func (p LogPresenter) SetConnectionIndicator(connected bool) {
	p.logger().Info("connection indicator", "connected", connected)
}

func (p LogPresenter) Stop() {}

var (
	_ Presenter = MultiPresenter(nil)
	_ Presenter = LogPresenter{}
)
