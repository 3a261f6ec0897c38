package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ContainsPattern kullanıcı aramasını ILIKE için "içinde geçer" kalıbına çevirir.
// % ve _ joker olarak değil, harfi harfine aranır.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
