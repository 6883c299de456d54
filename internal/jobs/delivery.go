package jobs

import "github.com/labstack/echo/v4"

type Handlers interface {
	Submit() echo.HandlerFunc
	ListJobs() echo.HandlerFunc
	GetJob() echo.HandlerFunc
	GetStatus() echo.HandlerFunc
	GetReady() echo.HandlerFunc
	GetTranscriptVTT() echo.HandlerFunc
	Requeue() echo.HandlerFunc
}

type WorkerHandlers interface {
	Next() echo.HandlerFunc
	Heartbeat() echo.HandlerFunc
	Complete() echo.HandlerFunc
	Ping() echo.HandlerFunc
}
