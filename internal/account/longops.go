package account

import (
	"github.com/Iron-Ham/chatcore/internal/handle"
)

// Configure starts configuring the account from its addr and mail_pw
// settings. Progress arrives as configure-progress events ending at 0
// (failed) or 1000 (done).
func (c *Context) Configure() {
	if c.IsNull() {
		return
	}
	c.logger.Info("configure started")
	c.api.Configure(c.h())
}

// StopOngoingProcess cancels a running configure or import/export.
func (c *Context) StopOngoingProcess() {
	if !c.IsNull() {
		c.api.StopOngoingProcess(c.h())
	}
}

// Imex starts an import or export; what is one of the engine.Imex* modes.
// Progress arrives as imex-progress events.
func (c *Context) Imex(what int, dir, passphrase string) {
	if c.IsNull() {
		return
	}
	c.logger.Info("imex started", "what", what, "dir", dir)
	c.api.Imex(c.h(), what, dir, passphrase)
}

// ImexHasBackup returns the newest backup file in dir.
func (c *Context) ImexHasBackup(dir string) (string, bool) {
	if c.IsNull() {
		return "", false
	}
	return handle.TakeOptional(c.api, c.api.ImexHasBackup(c.h(), dir))
}

// SecurejoinQR returns the invite text for chatID, or for a one-to-one
// verification when chatID is 0.
func (c *Context) SecurejoinQR(chatID uint32) (string, bool) {
	if c.IsNull() {
		return "", false
	}
	return handle.TakeOptional(c.api, c.api.GetSecurejoinQR(c.h(), chatID))
}

// JoinSecurejoin starts joining via an invite and returns the chat id the
// joined contact or group will appear in. Progress arrives as
// securejoin-joiner-progress events.
func (c *Context) JoinSecurejoin(qr string) uint32 {
	if c.IsNull() {
		return 0
	}
	return c.api.JoinSecurejoin(c.h(), qr)
}

// JoinSecurejoinErr is JoinSecurejoin with the engine diagnostic as an
// error.
func (c *Context) JoinSecurejoinErr(qr string) (uint32, error) {
	id := c.JoinSecurejoin(qr)
	if id == 0 {
		return 0, c.fail("join_securejoin")
	}
	return id, nil
}

// CheckQR classifies scanned text; the lot state is one of engine.QR*.
func (c *Context) CheckQR(qr string) *handle.Lot {
	if c.IsNull() {
		return handle.NewLot(c.api, 0)
	}
	return handle.NewLot(c.api, c.api.CheckQR(c.h(), qr))
}

// SetConfigFromQR applies an account or login QR code.
func (c *Context) SetConfigFromQR(qr string) bool {
	return !c.IsNull() && c.api.SetConfigFromQR(c.h(), qr) != 0
}

// SetConfigFromQRErr is SetConfigFromQR with the engine diagnostic as an
// error.
func (c *Context) SetConfigFromQRErr(qr string) error {
	if !c.SetConfigFromQR(qr) {
		return c.fail("set_config_from_qr")
	}
	return nil
}

// NewBackupProvider prepares a backup for transfer to a second device.
func (c *Context) NewBackupProvider() *handle.BackupProvider {
	if c.IsNull() {
		return handle.NewBackupProvider(c.api, 0)
	}
	return handle.NewBackupProvider(c.api, c.api.BackupProviderNew(c.h()))
}

// ReceiveBackup starts receiving a backup announced by qr. Progress arrives
// as imex-progress events.
func (c *Context) ReceiveBackup(qr string) bool {
	return !c.IsNull() && c.api.ReceiveBackup(c.h(), qr) != 0
}

// ReceiveBackupErr is ReceiveBackup with the engine diagnostic as an error.
func (c *Context) ReceiveBackupErr(qr string) error {
	if !c.ReceiveBackup(qr) {
		return c.fail("receive_backup")
	}
	return nil
}

// Provider returns provider information for the domain of addr. The result
// is null for unknown providers.
func (c *Context) Provider(addr string) *handle.Provider {
	if c.IsNull() {
		return handle.NewProvider(c.api, 0)
	}
	return handle.NewProvider(c.api, c.api.ProviderNewFromEmail(c.h(), addr))
}
