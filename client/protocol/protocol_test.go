package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthToken(t *testing.T) {
	cases := []struct {
		name      string
		password  string
		salt      string
		challenge string
		expAuth   string
	}{
		{
			name:      "short vector",
			password:  "P",
			salt:      "S",
			challenge: "C",
			expAuth:   "G8jCK6O6cOChKMY3K/UgX90r3YH8JM5AgVYpOM6zwRY=",
		},
		{
			name:      "protocol document vector",
			password:  "supersecretpassword",
			salt:      "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI=",
			challenge: "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY=",
			expAuth:   "1Ct943GAT+6YQUUX47Ia/ncufilbe6+oD6lY+5kaCu4=",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expAuth, AuthToken(c.password, c.salt, c.challenge))
			// deterministic
			assert.Equal(t, AuthToken(c.password, c.salt, c.challenge), AuthToken(c.password, c.salt, c.challenge))
		})
	}
}

func TestSubsAggregates(t *testing.T) {
	assert.Equal(t, Subs(0x7ff), SubsLowVolume)
	assert.Equal(t, Subs(0xf0000), SubsHighVolume)
	assert.Equal(t, SubsLowVolume|SubsHighVolume, SubsAll)
	assert.True(t, SubsAll.Has(SubsInputVolumeMeters))
	assert.False(t, SubsLowVolume.Has(SubsInputVolumeMeters))
}

func TestSubsString(t *testing.T) {
	assert.Equal(t, "none", SubsNone.String())
	assert.Equal(t, "general|scenes", (SubsGeneral | SubsScenes).String())
	assert.Equal(t, "ui|input_volume_meters", (SubsUI | SubsInputVolumeMeters).String())
	assert.Equal(t, "general|0x800", (SubsGeneral | Subs(1<<11)).String())
}

func TestParseSubs(t *testing.T) {
	cases := []struct {
		in     string
		exp    Subs
		expErr string
	}{
		{in: "", exp: SubsNone},
		{in: "none", exp: SubsNone},
		{in: "low", exp: SubsLowVolume},
		{in: "low,input_volume_meters", exp: SubsLowVolume | SubsInputVolumeMeters},
		{in: "scenes|inputs", exp: SubsScenes | SubsInputs},
		{in: "sceneitems", exp: SubsSceneItems},
		{in: "HIGH", exp: SubsHighVolume},
		{in: "all", exp: SubsAll},
		{in: "5", exp: SubsGeneral | SubsScenes},
		{in: "bogus", expErr: `unknown event subscription "bogus"`},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			subs, err := ParseSubs(c.in)
			if c.expErr != "" {
				require.EqualError(t, err, c.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.exp, subs)
		})
	}
}

func TestIdentifyOmitsEmptyAuthentication(t *testing.T) {
	f, err := NewFrame(OpIdentify, Identify{RPCVersion: RPCVersion, EventSubscriptions: SubsScenes})
	require.NoError(t, err)
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":1,"d":{"rpcVersion":1,"eventSubscriptions":4}}`, string(b))
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"op":7,"d":{"requestType":"GetVersion","requestId":"3","requestStatus":{"result":false,"code":600,"comment":"nope"}}}`))
	require.NoError(t, err)
	assert.Equal(t, OpRequestResponse, f.Op)

	var resp RequestResponse
	require.NoError(t, f.Data(&resp))
	assert.Equal(t, "3", resp.RequestID)
	assert.Equal(t, RequestStatus{Result: false, Code: 600, Comment: "nope"}, resp.RequestStatus)
	assert.Empty(t, resp.ResponseData)

	for raw, exp := range map[string]string{
		`{"requestType":"GetVersion","requestId":42,"requestStatus":{"result":true,"code":100}}`: "42",
		`{"requestType":"GetVersion","requestStatus":{"result":true,"code":100}}`:                 "",
	} {
		resp = RequestResponse{}
		require.NoError(t, json.Unmarshal([]byte(raw), &resp))
		assert.Equal(t, exp, resp.RequestID)
		assert.Equal(t, "GetVersion", resp.RequestType)
		assert.True(t, resp.RequestStatus.Result)
	}
	require.Error(t, json.Unmarshal([]byte(`{"requestId":1.5}`), &resp))
	require.Error(t, json.Unmarshal([]byte(`{"requestId":{}}`), &resp))

	_, err = DecodeFrame([]byte(`{"op":`))
	require.Error(t, err)

	err = Frame{Op: OpHello}.Data(&Hello{})
	require.EqualError(t, err, "Hello frame has no data")
}
