package server

// Server объединяет HTTP-серверы отдельных сущностей.
type Server struct {
	AccountServer
	DealServer
	AdminServer
	WebhookServer
}

func NewServer(
	accountServer AccountServer,
	dealServer DealServer,
	adminServer AdminServer,
	webhookServer WebhookServer,
) Server {
	return Server{
		AccountServer: accountServer,
		DealServer:    dealServer,
		AdminServer:   adminServer,
		WebhookServer: webhookServer,
	}
}
