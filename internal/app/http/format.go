package http

import (
	"fmt"

	"github.com/spounge-ai/ffproxy/internal/domain"
)

// AccountView is the public shape of /get. Field names are part of the API
// that existing clients parse.
type AccountView struct {
	AccountInfo        AccountInfo        `json:"AccountInfo"`
	AccountProfileInfo AccountProfileInfo `json:"AccountProfileInfo"`
	EquippedItemsInfo  EquippedItemsInfo  `json:"EquippedItemsInfo"`
	SocialInfo         map[string]any     `json:"SocialInfo"`
	PetInfo            map[string]any     `json:"PetInfo"`
	AccountType        any                `json:"AccountType"`
	ReleaseVersion     any                `json:"ReleaseVersion"`
	CreditScoreInfo    map[string]any     `json:"CreditScoreInfo"`
	GuildInfo          GuildInfo          `json:"GuildInfo"`
	GuildOwnerInfo     map[string]any     `json:"GuildOwnerInfo"`
}

type AccountInfo struct {
	AccountName       any `json:"AccountName"`
	AccountLevel      any `json:"AccountLevel"`
	AccountEXP        any `json:"AccountEXP"`
	AccountRegion     any `json:"AccountRegion"`
	AccountLikes      any `json:"AccountLikes"`
	AccountLastLogin  any `json:"AccountLastLogin"`
	AccountCreateTime any `json:"AccountCreateTime"`
	AccountSeasonID   any `json:"AccountSeasonId"`
}

type AccountProfileInfo struct {
	BrMaxRank   any `json:"BrMaxRank"`
	BrRankPoint any `json:"BrRankPoint"`
	CsMaxRank   any `json:"CsMaxRank"`
	CsRankPoint any `json:"CsRankPoint"`
	ShowBrRank  any `json:"ShowBrRank"`
	ShowCsRank  any `json:"ShowCsRank"`
	Title       any `json:"Title"`
}

type EquippedItemsInfo struct {
	EquippedAvatarID any `json:"EquippedAvatarId"`
	EquippedBPBadges any `json:"EquippedBPBadges"`
	EquippedBPID     any `json:"EquippedBPID"`
	EquippedBannerID any `json:"EquippedBannerId"`
	EquippedOutfit   any `json:"EquippedOutfit"`
	EquippedWeapon   any `json:"EquippedWeapon"`
	EquippedSkills   any `json:"EquippedSkills"`
}

type GuildInfo struct {
	GuildCapacity any     `json:"GuildCapacity"`
	GuildID       *string `json:"GuildID"`
	GuildLevel    any     `json:"GuildLevel"`
	GuildMember   any     `json:"GuildMember"`
	GuildName     any     `json:"GuildName"`
	GuildOwner    *string `json:"GuildOwner"`
}

// FormatAccount remaps the decoded record. AccountRegion falls back to the
// region that answered when the record does not carry one.
func FormatAccount(rec *domain.AccountRecord, effectiveRegion string) AccountView {
	basic := rec.BasicInfo()
	profile := rec.Section("profileInfo")
	clan := rec.Section("clanBasicInfo")

	view := AccountView{
		AccountInfo: AccountInfo{
			AccountName:       basic["nickname"],
			AccountLevel:      basic["level"],
			AccountEXP:        basic["exp"],
			AccountRegion:     basic["region"],
			AccountLikes:      basic["liked"],
			AccountLastLogin:  basic["lastLoginAt"],
			AccountCreateTime: basic["createAt"],
			AccountSeasonID:   basic["seasonId"],
		},
		AccountProfileInfo: AccountProfileInfo{
			BrMaxRank:   basic["maxRank"],
			BrRankPoint: basic["rankingPoints"],
			CsMaxRank:   basic["csMaxRank"],
			CsRankPoint: basic["csRankingPoints"],
			ShowBrRank:  basic["showBrRank"],
			ShowCsRank:  basic["showCsRank"],
			Title:       basic["title"],
		},
		EquippedItemsInfo: EquippedItemsInfo{
			EquippedAvatarID: basic["headPic"],
			EquippedBPBadges: basic["badgeCnt"],
			EquippedBPID:     basic["badgeId"],
			EquippedBannerID: basic["bannerId"],
			EquippedOutfit:   listOrEmpty(profile["clothes"]),
			EquippedWeapon:   listOrEmpty(basic["weaponSkinShows"]),
			EquippedSkills:   listOrEmpty(profile["equipedSkills"]),
		},
		SocialInfo:      sectionOrEmpty(rec, "socialInfo"),
		PetInfo:         sectionOrEmpty(rec, "petInfo"),
		AccountType:     basic["accountType"],
		ReleaseVersion:  basic["releaseVersion"],
		CreditScoreInfo: sectionOrEmpty(rec, "creditScoreInfo"),
		GuildInfo: GuildInfo{
			GuildCapacity: clan["capacity"],
			GuildID:       stringify(clan["clanId"]),
			GuildLevel:    clan["clanLevel"],
			GuildMember:   clan["memberNum"],
			GuildName:     clan["clanName"],
			GuildOwner:    stringify(clan["captainId"]),
		},
		GuildOwnerInfo: sectionOrEmpty(rec, "captainBasicInfo"),
	}

	if s, _ := view.AccountInfo.AccountRegion.(string); s == "" {
		view.AccountInfo.AccountRegion = effectiveRegion
	}
	return view
}

func sectionOrEmpty(rec *domain.AccountRecord, name string) map[string]any {
	if s := rec.Section(name); s != nil {
		return s
	}
	return map[string]any{}
}

func listOrEmpty(v any) any {
	if v == nil {
		return []any{}
	}
	return v
}

// stringify renders ids as strings; 64-bit ids already arrive as strings
// from the JSON projection.
func stringify(v any) *string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}
