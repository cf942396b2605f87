package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: ping (o saldo é empurrado pelo servidor, não há subscribe)
type ClientMsg struct {
	Type string `json:"type"`
}

// BalanceUpdate é enviado ao cliente sempre que o saldo da banca muda
type BalanceUpdate struct {
	BankrollID   string `json:"bankrollId"`
	BalanceCents int64  `json:"balance"`
	Reason       string `json:"reason"` // bet_placed | bet_settled | bet_cancelled | deposit | withdrawal | adjustment
	TsUnixMs     int64  `json:"ts"`
}
