// Package config defines host settings used by the chcp binaries and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the remote config URL, the local content root,
// and the native build version used by the compatibility gate.
package config
