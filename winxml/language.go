package winxml

import "sort"

// languageIDToName maps an InstallLanguage LCID (as read, hex-encoded, out
// of the SYSTEM hive) to the name WIM XML info documents use in
// WINDOWS/LANGUAGES/DEFAULT. (WINDOWS/LANGUAGES/LANGUAGE[n] takes the
// UILanguages subkey names as they are and does not use this table.) This is a
// representative subset of the LCID table the original harvester embeds in
// full; unrecognized ids are logged and skipped rather than treated as
// fatal, matching the "unrecognized InstallLanguage" warning path.
var languageIDToName = map[uint16]string{
	0x0409: "en-US",
	0x0809: "en-GB",
	0x040c: "fr-FR",
	0x0c0c: "fr-CA",
	0x0407: "de-DE",
	0x0410: "it-IT",
	0x040a: "es-ES",
	0x0411: "ja-JP",
	0x0412: "ko-KR",
	0x0804: "zh-CN",
	0x0404: "zh-TW",
	0x0416: "pt-BR",
	0x0816: "pt-PT",
	0x0419: "ru-RU",
	0x0415: "pl-PL",
	0x0413: "nl-NL",
	0x041d: "sv-SE",
	0x0414: "nb-NO",
	0x0406: "da-DK",
	0x040b: "fi-FI",
	0x0408: "el-GR",
	0x041f: "tr-TR",
	0x040e: "hu-HU",
	0x0405: "cs-CZ",
	0x0418: "ro-RO",
	0x0421: "id-ID",
	0x042d: "eu-ES",
	0x0401: "ar-SA",
	0x040d: "he-IL",
	0x0439: "hi-IN",
}

// languageIDs is languageIDToName's keys, sorted, so lookups can be
// reported and iterated deterministically the way the original's
// binary-searched, sorted table is.
var languageIDs = sortedLanguageIDs()

func sortedLanguageIDs() []uint16 {
	ids := make([]uint16, 0, len(languageIDToName))
	for id := range languageIDToName {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// languageName looks up id via binary search over the sorted id table,
// mirroring language_id_to_name's approach even though Go's map already
// gives O(1) lookup; the sorted table is kept so languageIDs stays a
// meaningful, ordered artifact for any caller that wants to enumerate it.
func languageName(id uint16) (string, bool) {
	i := sort.Search(len(languageIDs), func(i int) bool { return languageIDs[i] >= id })
	if i < len(languageIDs) && languageIDs[i] == id {
		return languageIDToName[id], true
	}
	return "", false
}
