package database

import (
	"net"
	"strconv"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
)

// NodeId identifies a participant in the network. By convention a node's
// id is the TCP port it listens on, so it is unique within one network.
type NodeId uint64

// Node is a peer record: how to reach it, and the public key its
// transactions and gossip are verified against.
type Node struct {
	ID     NodeId           `json:"id"`
	Addr   string           `json:"addr"`
	PubKey signature.PubKey `json:"pub_key"`
}

// User is the local node's own identity: its peer record plus the
// private key only it holds.
type User struct {
	Node    Node
	PrivKey signature.PrivKey
}

// NodeIDFromAddr derives a NodeId from a "host:port" address, following
// the node-id-equals-listening-port convention.
func NodeIDFromAddr(addr string) (NodeId, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}

	port, err := strconv.ParseUint(portStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return NodeId(port), nil
}
