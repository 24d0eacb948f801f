// Package store provee el registry de adaptadores de almacenamiento.
//
// Cada adapter (memory, postgres, remote) se registra en init() y expone los
// tres repositorios de dominio sobre una única conexión.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

// Adapter representa un driver capaz de abrir conexiones.
type Adapter interface {
	// Name retorna el nombre del adapter ("memory", "postgres", "remote").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection representa una conexión activa con acceso a los repositorios.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Credentials() repository.CredentialStore
	Profiles() repository.ProfileRepository
	Staff() repository.StaffRepository
}

// Migratable es opcional: conexiones con schema propio (postgres).
type Migratable interface {
	Migrate(ctx context.Context) (*MigrationResult, error)
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "memory", "postgres", "remote"
	Name string

	// DSN connection string (postgres)
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration

	// Remote: base URL del proveedor + claves.
	// ServiceKey solo la usa el CredentialStore (operaciones administrativas).
	RemoteURL  string
	ServiceKey string
	AnonKey    string
	Timeout    time.Duration

	// SessionTTL duración de las sesiones abiertas por SignIn (drivers locales).
	SessionTTL time.Duration
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre una conexión usando el adapter indicado en cfg.Name.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	registryMu.RLock()
	a, ok := adapters[cfg.Name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: adapter %q not registered (have %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
