package client

import "github.com/ardanlabs/chainsync/foundation/blockchain/message"

// dispatch routes inbound messages. Responses complete a pending request,
// everything else goes to the handler.
type dispatch struct {
	c       *Client
	handler Handler
}

func (d dispatch) GetLongestChainRequest(msg message.GetLongestChainRequest) error {
	d.handler.GetLongestChainRequest(msg.ID)
	return nil
}

func (d dispatch) GetLongestChainResponse(msg message.GetLongestChainResponse) error {
	d.c.deliver(msg.ID, msg.Chain)
	return nil
}

func (d dispatch) NewBlockRequest(msg message.NewBlockRequest) error {
	d.handler.NewBlockRequest(msg.ID, msg.Transactions)
	return nil
}

func (d dispatch) NewBlockAnnouncement(msg message.NewBlockAnnouncement) error {
	d.handler.NewBlockAnnouncement(msg.ID, msg.Block)
	return nil
}
