// Package document implements persistence for the two release documents.
//
// Storages are folder-parameterized: the update pipeline reads installed
// documents from one release folder and writes staged ones into another
// through the same storage. Writes go through a temp file and rename.
package document
