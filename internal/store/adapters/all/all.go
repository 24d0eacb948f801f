// Package all importa todos los adapters para auto-registro.
// Importar este paquete en main.go para habilitar todos los drivers.
//
// Uso:
//
//	import _ "github.com/dropDatabas3/printdesk/internal/store/adapters/all"
package all

import (
	_ "github.com/dropDatabas3/printdesk/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/printdesk/internal/store/adapters/pg"
	_ "github.com/dropDatabas3/printdesk/internal/store/adapters/remote"
)
