package esplora

type tx struct {
	TxID string  `json:"txid"`
	Vout []txOut `json:"vout"`
}

type txOut struct {
	ScriptPubKey string `json:"scriptpubkey"`
	Value        uint64 `json:"value"`
}

type outspend struct {
	Spent bool   `json:"spent"`
	TxID  string `json:"txid,omitempty"`
}

type utxo struct {
	txid   string
	index  uint32
	value  uint64
	script []byte
	spent  bool
}

func (u utxo) GetTxid() string {
	return u.txid
}

func (u utxo) GetIndex() uint32 {
	return u.index
}

func (u utxo) GetValue() uint64 {
	return u.value
}

func (u utxo) GetScript() []byte {
	return u.script
}

func (u utxo) IsSpent() bool {
	return u.spent
}
