package commands

const (
	_etc = "/usr/local/etc/uhppoted"
	_var = "/usr/local/var/uhppoted"

	DEFAULT_WORKDIR     = _var + "/sheetdb"
	DEFAULT_CREDENTIALS = _etc + "/sheetdb/.google/credentials.json"
	DEFAULT_BIND        = "127.0.0.1:8080"
)
