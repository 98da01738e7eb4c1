package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Driver abre un Store. Cada driver se registra en init().
type Driver interface {
	Name() string
	Open(ctx context.Context, cfg Config) (Store, error)
}

// Config configuración para abrir un driver.
type Config struct {
	// Driver: "remote" | "memory"
	Driver string
	// BaseURL del servicio de persistencia (remote).
	BaseURL string
	// Timeout por request (remote).
	Timeout time.Duration
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	drivers    = make(map[string]Driver)
)

// RegisterDriver registra un driver. Llamar en init() de cada driver.
func RegisterDriver(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := d.Name()
	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("store: driver %q already registered", name))
	}
	drivers[name] = d
}

// GetDriver obtiene un driver por nombre.
func GetDriver(name string) (Driver, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// ListDrivers retorna los nombres registrados, ordenados.
func ListDrivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre el store usando el driver indicado en cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	d, ok := GetDriver(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("store: driver %q not registered (have %v)", cfg.Driver, ListDrivers())
	}
	return d.Open(ctx, cfg)
}
