package domain

// MergeField identifies one of the personal fields a merge may reconcile.
// Only fields on this allow-list are ever compared or overwritten; everything
// else on the record is left untouched by a merge.
type MergeField string

const (
	FieldFullName    MergeField = "full_name"
	FieldDisplayName MergeField = "display_name"
	FieldEmail       MergeField = "email"
	FieldPhone       MergeField = "phone"
	FieldAvatarURL   MergeField = "avatar_url"
	FieldBirthday    MergeField = "birthday"
	FieldGender      MergeField = "gender"
	FieldEthnicity   MergeField = "ethnicity"
	FieldGuardian    MergeField = "guardian"
	FieldNationalID  MergeField = "national_id"
	FieldAddress     MergeField = "address"
	FieldNote        MergeField = "note"
)

// MergeFields is the fixed allow-list, in presentation order.
var MergeFields = []MergeField{
	FieldFullName,
	FieldDisplayName,
	FieldEmail,
	FieldPhone,
	FieldAvatarURL,
	FieldBirthday,
	FieldGender,
	FieldEthnicity,
	FieldGuardian,
	FieldNationalID,
	FieldAddress,
	FieldNote,
}

// IsMergeField reports whether name is on the allow-list.
func IsMergeField(name string) bool {
	for _, f := range MergeFields {
		if f == MergeField(name) {
			return true
		}
	}
	return false
}

const birthdayLayout = "2006-01-02"

// FieldValue returns the record's value for f rendered as a string, and
// whether the field is set. Birthdays render as YYYY-MM-DD.
func (u *WorkspaceUser) FieldValue(f MergeField) (string, bool) {
	switch f {
	case FieldFullName:
		return strValue(u.FullName)
	case FieldDisplayName:
		return strValue(u.DisplayName)
	case FieldEmail:
		return strValue(u.Email)
	case FieldPhone:
		return strValue(u.Phone)
	case FieldAvatarURL:
		return strValue(u.AvatarURL)
	case FieldBirthday:
		if u.Birthday == nil {
			return "", false
		}
		return u.Birthday.Format(birthdayLayout), true
	case FieldGender:
		return strValue(u.Gender)
	case FieldEthnicity:
		return strValue(u.Ethnicity)
	case FieldGuardian:
		return strValue(u.Guardian)
	case FieldNationalID:
		return strValue(u.NationalID)
	case FieldAddress:
		return strValue(u.Address)
	case FieldNote:
		return strValue(u.Note)
	}
	return "", false
}

// CopyField copies src's value for f onto dst. Nothing happens when src has
// no value for f, so a "delete"-side null never erases keep-side data.
func (dst *WorkspaceUser) CopyField(src *WorkspaceUser, f MergeField) {
	switch f {
	case FieldFullName:
		copyStr(&dst.FullName, src.FullName)
	case FieldDisplayName:
		copyStr(&dst.DisplayName, src.DisplayName)
	case FieldEmail:
		copyStr(&dst.Email, src.Email)
	case FieldPhone:
		copyStr(&dst.Phone, src.Phone)
	case FieldAvatarURL:
		copyStr(&dst.AvatarURL, src.AvatarURL)
	case FieldBirthday:
		if src.Birthday != nil {
			b := *src.Birthday
			dst.Birthday = &b
		}
	case FieldGender:
		copyStr(&dst.Gender, src.Gender)
	case FieldEthnicity:
		copyStr(&dst.Ethnicity, src.Ethnicity)
	case FieldGuardian:
		copyStr(&dst.Guardian, src.Guardian)
	case FieldNationalID:
		copyStr(&dst.NationalID, src.NationalID)
	case FieldAddress:
		copyStr(&dst.Address, src.Address)
	case FieldNote:
		copyStr(&dst.Note, src.Note)
	}
}

// FilledFieldCount counts how many allow-listed fields hold a value.
// The "most data" auto-select policy ranks group members by this count.
func (u *WorkspaceUser) FilledFieldCount() int {
	n := 0
	for _, f := range MergeFields {
		if _, ok := u.FieldValue(f); ok {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the record.
func (u *WorkspaceUser) Clone() *WorkspaceUser {
	c := *u
	c.FullName = cloneStr(u.FullName)
	c.DisplayName = cloneStr(u.DisplayName)
	c.Email = cloneStr(u.Email)
	c.Phone = cloneStr(u.Phone)
	c.AvatarURL = cloneStr(u.AvatarURL)
	c.Gender = cloneStr(u.Gender)
	c.Ethnicity = cloneStr(u.Ethnicity)
	c.Guardian = cloneStr(u.Guardian)
	c.NationalID = cloneStr(u.NationalID)
	c.Address = cloneStr(u.Address)
	c.Note = cloneStr(u.Note)
	if u.Birthday != nil {
		b := *u.Birthday
		c.Birthday = &b
	}
	return &c
}

func strValue(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

func copyStr(dst **string, src *string) {
	if src == nil || *src == "" {
		return
	}
	v := *src
	*dst = &v
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
