// Package all registers every built-in storage backend. Import it for side
// effects from the binary's wiring layer:
//
//	import _ "rxreport/internal/storage/all"
package all

import (
	_ "rxreport/internal/storage/mssql"
	_ "rxreport/internal/storage/mysql"
	_ "rxreport/internal/storage/postgres"
	_ "rxreport/internal/storage/sqlite"
)
