package ports

type UtxoKey interface {
	GetTxid() string
	GetIndex() uint32
}

type Utxo interface {
	UtxoKey
	GetValue() uint64
	GetScript() []byte
	IsSpent() bool
}
