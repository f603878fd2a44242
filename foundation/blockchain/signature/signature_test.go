package signature_test

import (
	"encoding/json"
	"testing"

	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	payload := []byte("a message under the 117 byte limit")

	sig, err := signature.Sign(payload, priv)
	require.NoError(t, err)

	err = signature.Verify(payload, sig, pub)
	require.NoError(t, err)
}

func TestSignRejectsOversizedPayload(t *testing.T) {
	priv, _, err := signature.GenerateKey()
	require.NoError(t, err)

	payload := make([]byte, 118)

	_, err = signature.Sign(payload, priv)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	priv, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	payload := []byte("original payload")
	sig, err := signature.Sign(payload, priv)
	require.NoError(t, err)

	err = signature.Verify([]byte("tampered payload"), sig, pub)
	require.Error(t, err)
}

func TestPubKeyJSONRoundTrip(t *testing.T) {
	_, pub, err := signature.GenerateKey()
	require.NoError(t, err)

	data, err := json.Marshal(pub)
	require.NoError(t, err)

	var decoded signature.PubKey
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.True(t, pub.Equal(decoded))
}

func TestSignatureJSONIsByteArray(t *testing.T) {
	sig := signature.Signature{1, 2, 255}

	data, err := json.Marshal(sig)
	require.NoError(t, err)
	require.JSONEq(t, "[1,2,255]", string(data))

	var decoded signature.Signature
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, sig, decoded)
}

func TestSignatureJSONNilRoundTrip(t *testing.T) {
	var sig signature.Signature

	data, err := json.Marshal(sig)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))

	var decoded signature.Signature
	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	require.Nil(t, decoded)
}

func TestStampIsDeterministic(t *testing.T) {
	type pair struct {
		A int    `json:"a"`
		B string `json:"b"`
	}

	v := pair{A: 1, B: "x"}

	first, err := signature.Stamp(v)
	require.NoError(t, err)

	second, err := signature.Stamp(v)
	require.NoError(t, err)

	require.Equal(t, first, second)
}
