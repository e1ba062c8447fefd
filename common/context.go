package common

type LespasContextKey string

const (
	ContextLogger LespasContextKey = "lespas.logger"
	ContextConfig LespasContextKey = "lespas.config"
)
