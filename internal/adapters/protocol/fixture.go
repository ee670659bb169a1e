package protocol

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// AccountFixture describes a minimal account response, used by tests that
// stand in for the game server.
type AccountFixture struct {
	AccountID uint64
	Nickname  string
	Region    string
	Level     uint32
	ClanID    uint64
	ClanName  string
}

// EncodeAccount builds a binary AccountPersonalShowInfo from f.
func (c *Codec) EncodeAccount(f AccountFixture) ([]byte, error) {
	msg := dynamicpb.NewMessage(c.response)
	fields := c.response.Fields()

	basic := msg.Mutable(fields.ByName("basic_info")).Message()
	setField(basic, "account_id", protoreflect.ValueOfUint64(f.AccountID))
	setField(basic, "nickname", protoreflect.ValueOfString(f.Nickname))
	setField(basic, "region", protoreflect.ValueOfString(f.Region))
	setField(basic, "level", protoreflect.ValueOfUint32(f.Level))

	if f.ClanID != 0 {
		clan := msg.Mutable(fields.ByName("clan_basic_info")).Message()
		setField(clan, "clan_id", protoreflect.ValueOfUint64(f.ClanID))
		setField(clan, "clan_name", protoreflect.ValueOfString(f.ClanName))
	}

	return c.marshal.Marshal(msg)
}

func setField(m protoreflect.Message, name string, v protoreflect.Value) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(name)), v)
}
