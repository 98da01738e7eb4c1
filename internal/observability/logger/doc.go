// Package logger expone un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez en main):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "widgetauth"})
//	defer logger.Sync()
//
// En handlers/services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Introspector.Introspect"))
//	log.Info("token revoked", logger.TokenHint(tok))
//
// Nunca se loguean secretos ni tokens completos: usar TokenHint.
package logger
