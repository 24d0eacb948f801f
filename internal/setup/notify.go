package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/printdesk/internal/email"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// Notifier recibe el estado final del trigger. Un error sólo se loguea.
type Notifier interface {
	Notify(ctx context.Context, s State) error
}

// NotifierFunc adapta una función a Notifier.
type NotifierFunc func(ctx context.Context, s State) error

func (f NotifierFunc) Notify(ctx context.Context, s State) error { return f(ctx, s) }

// EmailNotifier avisa por email sólo cuando el setup falló.
// El cuerpo lleva el paso y el error, nunca credenciales.
type EmailNotifier struct {
	Sender email.Sender
	To     string
	App    string
}

func (n *EmailNotifier) Notify(ctx context.Context, s State) error {
	if n == nil || n.Sender == nil || n.To == "" || s.Phase != PhaseFailed || s.Outcome == nil {
		return nil
	}
	app := n.App
	if app == "" {
		app = "printdesk"
	}

	subject := fmt.Sprintf("[%s] admin setup failed", app)

	var b strings.Builder
	fmt.Fprintf(&b, "El aprovisionamiento del administrador por defecto falló.\n\n")
	if s.StartedAt != nil {
		fmt.Fprintf(&b, "Inicio: %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "Error: %s\n\n", s.Outcome.Error)
	fmt.Fprintf(&b, "La aplicación sigue operativa. Revisá los logs (component=setup) y corré `printdesk provision` para reintentar.\n")

	if err := n.Sender.Send(ctx, n.To, subject, b.String(), ""); err != nil {
		return fmt.Errorf("setup: email notify: %w", err)
	}
	logger.From(ctx).Info("setup failure notified", logger.Email(n.To))
	return nil
}
