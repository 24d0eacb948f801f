// Package provision garantiza que exista una cuenta de administrador
// conocida y usable: credencial confirmada, perfil con rol admin y login
// funcional con el password esperado.
//
// Pipeline (estrictamente secuencial dentro de una corrida):
//
//	lookup → create-or-recover → confirm-email / repair-password → reconcile-profile → verify
//
// Cada paso es "asegurar X", no "hacer X una vez", así que correr el
// pipeline N veces (re-deploys, varias instancias arrancando a la vez)
// converge al mismo estado. La única tolerancia a carreras es el fallback
// de create duplicado a re-lookup: la unicidad del email la garantiza el
// store de credenciales.
//
// Los passwords nunca se loguean ni forman parte de mensajes de error;
// los emails se loguean enmascarados.
package provision
