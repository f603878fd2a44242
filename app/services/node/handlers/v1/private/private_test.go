package private_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/nocoinlabs/nocoin-node/app/services/node/handlers/v1/private"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/gossip"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
	"github.com/nocoinlabs/nocoin-node/foundation/web"
	"github.com/nocoinlabs/nocoin-node/foundation/web/mid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, st *state.State) *web.App {
	t.Helper()

	log := zap.NewNop().Sugar()
	app := web.NewApp(make(chan os.Signal, 1), mid.Errors(log))

	h := private.Handlers{Log: log, State: st, Gossip: gossip.New(log)}
	app.Handle(http.MethodPost, "/register", h.Register)
	app.Handle(http.MethodGet, "/get_chain", h.GetChain)
	app.Handle(http.MethodGet, "/get_pending_transactions", h.GetPendingTransactions)
	app.Handle(http.MethodPost, "/new_block", h.NewBlock)
	app.Handle(http.MethodPost, "/new_transaction", h.NewTransaction)
	app.Handle(http.MethodPost, "/acknowledge_new_node", h.AcknowledgeNewNode)
	app.Handle(http.MethodGet, "/node/status", h.Status)

	return app
}

func newTestState(t *testing.T, addr string) *state.State {
	t.Helper()

	priv, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	st, err := state.New(state.Config{Addr: addr, PrivKey: priv, PubKey: pub})
	require.NoError(t, err)

	return st
}

func do(app *web.App, method, path string, body any) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	r.RemoteAddr = "127.0.0.1:8101"

	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	return w
}

func TestRegisterAddsPeerAndReturnsList(t *testing.T) {
	st := newTestState(t, "127.0.0.1:8100")
	app := newTestApp(t, st)

	_, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	w := do(app, http.MethodPost, "/register", gossip.RegisterRequest{PubKey: pub})
	require.Equal(t, http.StatusOK, w.Code)

	var peers []database.Node
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &peers))
	require.Len(t, peers, 2)
}

func TestNewTransactionRejectsInsufficientFunds(t *testing.T) {
	st := newTestState(t, "127.0.0.1:8100")
	app := newTestApp(t, st)

	senderPriv, senderPub, err := signature.GenerateKey()
	require.NoError(t, err)

	sender, err := st.TryCreateNode("127.0.0.1:8101", senderPub)
	require.NoError(t, err)

	fromID := sender.ID
	tx := database.Transaction{From: &fromID, To: st.User().Node.ID, Fee: database.Zero, Amount: database.NewNoCoin(1)}
	proof, err := database.SignTransaction(tx, senderPriv)
	require.NoError(t, err)

	w := do(app, http.MethodPost, "/new_transaction", struct {
		Transaction database.Transaction `json:"transaction"`
		Proof       signature.Signature  `json:"proof"`
	}{tx, proof})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body.Error, "insufficient funds")
}

func TestNewBlockRejectsTamperedNonce(t *testing.T) {
	st := newTestState(t, "127.0.0.1:8100")
	app := newTestApp(t, st)

	tip := st.LatestBlock()
	batch := []database.ProvenTransaction{database.NewMiningReward(st.User().Node.ID)}

	var nonce uint32
	var hash string
	for nonce = 0; ; nonce++ {
		h, err := database.HashTransactions(batch, nonce)
		require.NoError(t, err)
		if database.Matches(h, 0) {
			hash = h
			break
		}
	}

	block := database.NewMinedBlock(tip, st.User().Node.ID, 0, batch, nonce, hash)
	block.Nonce++ // tamper

	w := do(app, http.MethodPost, "/new_block", block)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcknowledgeNewNodeRejectsDuplicate(t *testing.T) {
	st := newTestState(t, "127.0.0.1:8100")
	app := newTestApp(t, st)

	_, pub, err := signature.GenerateKey()
	require.NoError(t, err)
	node := database.Node{ID: 9000, Addr: "127.0.0.1:9000", PubKey: pub}

	w1 := do(app, http.MethodPost, "/acknowledge_new_node", node)
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := do(app, http.MethodPost, "/acknowledge_new_node", node)
	require.Equal(t, http.StatusBadRequest, w2.Code, "a duplicate announcement must surface as a duplicate-node error")

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &body))
	require.Contains(t, body.Error, "already known")
}

func TestStatusReportsChainTipAndPeers(t *testing.T) {
	st := newTestState(t, "127.0.0.1:8100")
	app := newTestApp(t, st)

	w := do(app, http.MethodGet, "/node/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		LatestBlockHash  string          `json:"latest_block_hash"`
		LatestBlockIndex uint64          `json:"latest_block_index"`
		KnownPeers       []database.Node `json:"known_peers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, uint64(0), status.LatestBlockIndex)
	require.Len(t, status.KnownPeers, 1)
}
