// Package storage manages the client files that live in the admin data
// directory: the admin code bundle and the key file.
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so a reader never observes a half-written bundle. Remove tolerates
// files that are already gone, which makes purging after a failed
// verification idempotent.
//
//	m, err := storage.NewManager(cfg.Admin.DataDir)
//	if err != nil {
//	    return err
//	}
//	if err := m.WriteJSON("admin_codes.json", bundle); err != nil {
//	    return err
//	}
//	removed, err := m.Remove("admin_codes.json", "admin_keys.json")
package storage
