package state

var blockHeightKey = []byte("chain/height")

// BlockHeight returns the stored current block height.
func (m *Manager) BlockHeight() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(blockHeightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SetBlockHeight stores the current block height.
func (m *Manager) SetBlockHeight(height uint64) error {
	return m.KVPut(blockHeightKey, height)
}
