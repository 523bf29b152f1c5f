// Package layout computes where releases live on disk.
//
// Every release occupies <root>/<version> with a www folder for installed
// content, an update folder for staged downloads, and a tmp folder for
// installer scratch space. The Layout type is pure path arithmetic;
// filesystem mutation belongs to fsutil and the services.
package layout
