package wire

import (
	"errors"
	"reflect"
	"testing"
)

func allPackets() []struct {
	name string
	pkt  Packet
} {
	return []struct {
		name string
		pkt  Packet
	}{
		{"open", &Open{ConnID: "abc", ServerInterval: 30000, ServerAttempts: 3, ClientInterval: 25000, ClientAttempts: 3}},
		{"open minimal", &Open{ClientInterval: 1000}},
		{"join", NewJoin("chat")},
		{"join ack", &JoinAck{Topic: "chat"}},
		{"join error", &JoinError{Topic: "badjoin", Message: "Cannot subscribe"}},
		{"leave", NewLeave("chat")},
		{"leave ack", &LeaveAck{Topic: "chat"}},
		{"leave error", &LeaveError{Topic: "chat", Message: "Cannot leave"}},
		{"event", NewEvent("chat", "hello", "world")},
		{"event nested data", NewEvent("chat", "msg", map[string]any{"body": "hi", "tags": []any{"a", "b"}})},
		{"event nil data", NewEvent("chat", "msg", nil)},
		{"ping", NewPing()},
		{"pong", &Pong{}},
	}
}

func TestRoundTrip(t *testing.T) {
	encoders := []Encoder{JSONEncoder{}, CBOREncoder{}}

	for _, enc := range encoders {
		for _, tt := range allPackets() {
			t.Run(enc.Name()+"/"+tt.name, func(t *testing.T) {
				data, err := enc.Encode(tt.pkt)
				if err != nil {
					t.Fatalf("Encode: %v", err)
				}

				decoded, err := enc.Decode(data)
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}

				if decoded.Type() != tt.pkt.Type() {
					t.Errorf("Type = %s, want %s", decoded.Type(), tt.pkt.Type())
				}
				if !reflect.DeepEqual(decoded, tt.pkt) {
					t.Errorf("decoded = %#v, want %#v", decoded, tt.pkt)
				}

				// Re-encoding the decoded value must give the same bytes.
				again, err := enc.Encode(decoded)
				if err != nil {
					t.Fatalf("re-Encode: %v", err)
				}
				if string(again) != string(data) {
					t.Errorf("re-encoded = %q, want %q", again, data)
				}
			})
		}
	}
}

func TestJSONWireFormat(t *testing.T) {
	tests := []struct {
		pkt  Packet
		want string
	}{
		{NewJoin("chat"), `{"t":1,"d":{"topic":"chat"}}`},
		{NewLeave("chat"), `{"t":2,"d":{"topic":"chat"}}`},
		{NewEvent("chat", "hello", "world"), `{"t":7,"d":{"topic":"chat","event":"hello","data":"world"}}`},
		{NewPing(), `{"t":8,"d":{}}`},
	}

	for _, tt := range tests {
		data, err := JSONEncoder{}.Encode(tt.pkt)
		if err != nil {
			t.Fatalf("Encode(%s): %v", tt.pkt.Type(), err)
		}
		if string(data) != tt.want {
			t.Errorf("Encode(%s) = %s, want %s", tt.pkt.Type(), data, tt.want)
		}
	}
}

func TestJSONDecodeServerPackets(t *testing.T) {
	enc := JSONEncoder{}

	p, err := enc.Decode([]byte(`{"t":0,"d":{"connId":"x1","serverInterval":30000,"serverAttempts":3,"clientInterval":25000,"clientAttempts":3}}`))
	if err != nil {
		t.Fatalf("Decode open: %v", err)
	}
	open, ok := p.(*Open)
	if !ok {
		t.Fatalf("Decode open returned %T", p)
	}
	if open.HeartbeatInterval().Milliseconds() != 25000 {
		t.Errorf("HeartbeatInterval = %v, want 25s", open.HeartbeatInterval())
	}

	p, err = enc.Decode([]byte(`{"t":9}`))
	if err != nil {
		t.Fatalf("Decode pong without payload: %v", err)
	}
	if _, ok := p.(*Pong); !ok {
		t.Errorf("Decode pong returned %T", p)
	}

	p, err = enc.Decode([]byte(`{"t":5,"d":null}`))
	if err != nil {
		t.Fatalf("Decode null payload: %v", err)
	}
	if ack, ok := p.(*LeaveAck); !ok || ack.Topic != "" {
		t.Errorf("Decode null payload = %#v", p)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	for _, enc := range []Encoder{JSONEncoder{}, CBOREncoder{}} {
		t.Run(enc.Name(), func(t *testing.T) {
			var data []byte
			if enc.Binary() {
				raw, err := encMode.Marshal(map[string]any{"t": 42, "d": map[string]any{"x": 1}})
				if err != nil {
					t.Fatalf("Marshal: %v", err)
				}
				data = raw
			} else {
				data = []byte(`{"t":42,"d":{"x":1}}`)
			}

			p, err := enc.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			u, ok := p.(*Unknown)
			if !ok {
				t.Fatalf("Decode returned %T, want *Unknown", p)
			}
			if u.Type() != 42 {
				t.Errorf("Code = %d, want 42", u.Type())
			}
			if u.Type().IsValid() {
				t.Error("IsValid() = true for unknown code")
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		enc  Encoder
		data []byte
	}{
		{"json garbage", JSONEncoder{}, []byte("not json")},
		{"json missing type", JSONEncoder{}, []byte(`{"d":{"topic":"chat"}}`)},
		{"json bad payload", JSONEncoder{}, []byte(`{"t":1,"d":{"topic":5}}`)},
		{"cbor garbage", CBOREncoder{}, []byte{0xff, 0x00}},
		{"cbor empty", CBOREncoder{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.enc.Decode(tt.data)
			if err == nil {
				t.Fatal("Decode succeeded, want error")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("error %v does not wrap ErrDecode", err)
			}
		})
	}
}

func TestEncodeValidation(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
		want error
	}{
		{"join without topic", NewJoin(""), ErrEmptyTopic},
		{"leave without topic", NewLeave(""), ErrEmptyTopic},
		{"event without topic", NewEvent("", "hello", nil), ErrEmptyTopic},
		{"event without name", NewEvent("chat", "", nil), ErrEmptyEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, enc := range []Encoder{JSONEncoder{}, CBOREncoder{}} {
				_, err := enc.Encode(tt.pkt)
				if !errors.Is(err, ErrEncode) {
					t.Errorf("%s: error %v does not wrap ErrEncode", enc.Name(), err)
				}
				if !errors.Is(err, tt.want) {
					t.Errorf("%s: error %v does not wrap %v", enc.Name(), err, tt.want)
				}
			}
		})
	}

	if _, err := (JSONEncoder{}).Encode(&Unknown{Code: 42}); !errors.Is(err, ErrEncode) {
		t.Errorf("Encode(Unknown) error = %v, want ErrEncode", err)
	}
}

func TestEncodeUnsupportedData(t *testing.T) {
	_, err := JSONEncoder{}.Encode(NewEvent("chat", "fn", func() {}))
	if !errors.Is(err, ErrEncode) {
		t.Errorf("Encode(func data) error = %v, want ErrEncode", err)
	}
}

func TestTopicOf(t *testing.T) {
	for _, tt := range allPackets() {
		got := TopicOf(tt.pkt)
		switch tt.pkt.(type) {
		case *Open, *Ping, *Pong:
			if got != "" {
				t.Errorf("TopicOf(%s) = %q, want empty", tt.name, got)
			}
		default:
			if got == "" {
				t.Errorf("TopicOf(%s) is empty", tt.name)
			}
		}
	}
}

func TestPacketTypeString(t *testing.T) {
	tests := []struct {
		typ  PacketType
		want string
	}{
		{TypeOpen, "OPEN"},
		{TypeJoinAck, "JOIN_ACK"},
		{TypeLeaveError, "LEAVE_ERROR"},
		{TypePong, "PONG"},
		{PacketType(99), "UNKNOWN(99)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestEncoderByName(t *testing.T) {
	for _, name := range []string{"", "json", "cbor"} {
		if _, err := EncoderByName(name); err != nil {
			t.Errorf("EncoderByName(%q): %v", name, err)
		}
	}
	if _, err := EncoderByName("msgpack"); err == nil {
		t.Error("EncoderByName(msgpack) succeeded, want error")
	}
}
