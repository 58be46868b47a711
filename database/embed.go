// Package database embed dosyası — migration SQL dosyalarını binary'ye gömer.
//
// Go'nun embed paketi, derleme zamanında dosyaları binary'nin içine gömer.
// Bu sayede deploy edilen binary yanında migration dosyalarına ihtiyaç duymaz.
package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedFiles embed.FS

// EmbeddedMigrations, migrations/ dizinine köklenmiş fs.FS.
// New'a doğrudan verilir; SQL dosyaları kök dizinde görünür.
var EmbeddedMigrations = func() fs.FS {
	sub, err := fs.Sub(embeddedFiles, "migrations")
	if err != nil {
		panic(err) // embed pattern'ı ile tutarsızlık — derleme hatası gibi davran
	}
	return sub
}()
