package auth

// ClearPasswordPlugin implements mysql_clear_password: the UTF-8 password
// bytes followed by a trailing NUL. Only safe to use over TLS or a Unix
// domain socket; neither this plugin nor conn.Engine refuses it over a
// plaintext TCP channel.
type ClearPasswordPlugin struct{}

func (ClearPasswordPlugin) Name() string { return "mysql_clear_password" }

func (ClearPasswordPlugin) Start(password string, seed []byte) ([]byte, error) {
	out := make([]byte, len(password)+1)
	copy(out, password)
	out[len(password)] = 0x00
	return out, nil
}

func (ClearPasswordPlugin) Continue(password string, seed []byte, serverData []byte, secureChannel bool) ([]byte, bool, error) {
	return nil, true, nil
}
