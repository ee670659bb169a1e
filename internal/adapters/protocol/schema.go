package protocol

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// The account service speaks an unpublished protobuf schema. Only the request
// envelope and the response sections the route layer reads are described;
// anything else is kept as unknown fields and ignored.

const (
	schemaPackage   = "ffproxy.account"
	requestMessage  = "GetPlayerPersonalShow"
	responseMessage = "AccountPersonalShowInfo"
)

var (
	tUint32 = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	tUint64 = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	tInt64  = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tString = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tBool   = descriptorpb.FieldDescriptorProto_TYPE_BOOL
)

func field(name string, num int32, t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   t.Enum(),
	}
}

func repeated(name string, num int32, t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	f := field(name, num, t)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func nested(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := field(name, num, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String("." + schemaPackage + "." + typeName)
	return f
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func schemaFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ffproxy/account.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message(requestMessage,
				field("a", 1, tUint64),
				field("b", 2, tUint32),
			),
			message(responseMessage,
				nested("basic_info", 1, "AccountInfoBasic"),
				nested("profile_info", 2, "AvatarProfile"),
				nested("clan_basic_info", 6, "ClanInfoBasic"),
				nested("captain_basic_info", 7, "AccountInfoBasic"),
				nested("pet_info", 8, "PetInfo"),
				nested("social_info", 9, "SocialBasicInfo"),
				nested("credit_score_info", 11, "CreditScoreInfo"),
			),
			message("AccountInfoBasic",
				field("account_id", 1, tUint64),
				field("account_type", 2, tUint32),
				field("nickname", 3, tString),
				field("external_id", 4, tString),
				field("region", 5, tString),
				field("level", 6, tUint32),
				field("exp", 7, tUint32),
				field("banner_id", 11, tUint32),
				field("head_pic", 12, tUint32),
				field("rank", 14, tUint32),
				field("ranking_points", 15, tUint32),
				field("badge_cnt", 18, tUint32),
				field("badge_id", 19, tUint32),
				field("season_id", 20, tUint32),
				field("liked", 21, tUint32),
				field("last_login_at", 24, tInt64),
				field("cs_rank", 30, tUint32),
				field("cs_ranking_points", 31, tUint32),
				repeated("weapon_skin_shows", 32, tUint32),
				field("max_rank", 35, tUint32),
				field("cs_max_rank", 36, tUint32),
				field("create_at", 44, tInt64),
				field("title", 48, tUint32),
				field("release_version", 50, tString),
				field("show_br_rank", 51, tBool),
				field("show_cs_rank", 52, tBool),
			),
			message("AvatarProfile",
				field("avatar_id", 1, tUint32),
				repeated("clothes", 4, tUint32),
				repeated("equiped_skills", 5, tUint32),
				field("is_selected", 7, tBool),
			),
			message("ClanInfoBasic",
				field("clan_id", 1, tUint64),
				field("clan_name", 2, tString),
				field("captain_id", 3, tUint64),
				field("clan_level", 4, tUint32),
				field("capacity", 5, tUint32),
				field("member_num", 6, tUint32),
			),
			message("PetInfo",
				field("id", 1, tUint32),
				field("name", 2, tString),
				field("level", 3, tUint32),
				field("exp", 4, tUint32),
				field("is_selected", 5, tBool),
				field("skin_id", 6, tUint32),
				field("selected_skill_id", 9, tUint32),
			),
			message("SocialBasicInfo",
				field("account_id", 1, tUint64),
				field("gender", 2, tUint32),
				field("language", 3, tUint32),
				field("signature", 9, tString),
			),
			message("CreditScoreInfo",
				field("credit_score", 1, tUint32),
				field("reward_state", 2, tUint32),
				field("periodic_summary_end_time", 3, tInt64),
			),
		},
	}
}
