// filename: internal/decoder/detect.go
package decoder

import (
	"regexp"

	"github.com/sigscope/sigscope/internal/models"
)

// detectionPattern связывает тип сообщения с шаблоном обнаружения
type detectionPattern struct {
	messageType string
	pattern     *regexp.Regexp
}

// messagePatterns упорядоченная таблица обнаружения типов сообщений.
// Побеждает первое совпадение, поэтому более специфичные шаблоны стоят
// раньше: RRCSetupComplete проверяется до RRCSetup, иначе Complete
// никогда не был бы распознан.
var messagePatterns = []detectionPattern{
	// 5G NR
	{"RRCSetupRequest", regexp.MustCompile(`(?i)RRC.*Setup.*Request|rrcSetupRequest`)},
	{"RRCSetupComplete", regexp.MustCompile(`(?i)RRC.*Setup.*Complete|rrcSetupComplete`)},
	{"RRCSetup", regexp.MustCompile(`(?i)RRC.*Setup|rrcSetup`)},
	{"RegistrationRequest", regexp.MustCompile(`(?i)Registration.*Request|registrationRequest|5GS.*Registration`)},
	{"MACPDU", regexp.MustCompile(`(?i)MAC.*PDU|macPDU|DL PDU|UL PDU`)},
	{"RLCDATA", regexp.MustCompile(`(?i)RLC.*DATA|rlcData|TX PDU|RX PDU`)},
	{"PDCPPDU", regexp.MustCompile(`(?i)PDCP.*PDU|pdcpPDU`)},

	// 4G LTE
	{"LTE_RRCConnectionRequest", regexp.MustCompile(`(?i)RRC.*Connection.*Request|rrcConnectionRequest|LTE.*RRC.*Request`)},
	{"LTE_RRCConnectionSetupComplete", regexp.MustCompile(`(?i)RRC.*Connection.*Setup.*Complete|rrcConnectionSetupComplete|LTE.*RRC.*Complete`)},
	{"LTE_RRCConnectionSetup", regexp.MustCompile(`(?i)RRC.*Connection.*Setup|rrcConnectionSetup|LTE.*RRC.*Setup`)},
	{"LTE_AttachRequest", regexp.MustCompile(`(?i)Attach.*Request|attachRequest|EPS.*Attach|LTE.*Attach`)},
	{"LTE_AttachAccept", regexp.MustCompile(`(?i)Attach.*Accept|attachAccept|EPS.*Accept|LTE.*Accept`)},
	{"LTE_MACPDU", regexp.MustCompile(`(?i)LTE.*MAC.*PDU|LTE.*macPDU|LTE.*DL PDU|LTE.*UL PDU`)},
	{"LTE_RLCDATA", regexp.MustCompile(`(?i)LTE.*RLC.*DATA|LTE.*rlcData|LTE.*TX PDU|LTE.*RX PDU`)},

	// Общие шаблоны (fallback)
	{"RRCGeneric", regexp.MustCompile(`(?i)RRC`)},
	{"NASGeneric", regexp.MustCompile(`(?i)NAS|EPS|5GS`)},
	{"MACGeneric", regexp.MustCompile(`(?i)MAC`)},
	{"RLCGeneric", regexp.MustCompile(`(?i)RLC`)},
	{"PDCPGeneric", regexp.MustCompile(`(?i)PDCP`)},
}

// DetectMessageType определяет тип сообщения по текстовому представлению.
// Возвращает UNKNOWN, если ни один шаблон не совпал. // v1.0
func DetectMessageType(rawMessage string) string {
	for _, dp := range messagePatterns {
		if dp.pattern.MatchString(rawMessage) {
			return dp.messageType
		}
	}
	return "UNKNOWN"
}

// genericProtocols сопоставляет распознанные, но не имеющие шаблона типы
// сообщений с протоколом и поколением
var genericProtocols = map[string]struct {
	protocol models.Protocol
	version  string
}{
	"RRCSetupComplete":               {models.ProtocolRRC, "5G"},
	"PDCPPDU":                        {models.ProtocolPDCP, "5G"},
	"LTE_RRCConnectionSetupComplete": {models.ProtocolRRC, "4G"},
	"LTE_AttachAccept":               {models.ProtocolNAS, "4G"},
	"RRCGeneric":                     {models.ProtocolRRC, "UNKNOWN"},
	"NASGeneric":                     {models.ProtocolNAS, "UNKNOWN"},
	"MACGeneric":                     {models.ProtocolMAC, "UNKNOWN"},
	"RLCGeneric":                     {models.ProtocolRLC, "UNKNOWN"},
	"PDCPGeneric":                    {models.ProtocolPDCP, "UNKNOWN"},
}

// genericProtocol возвращает протокол и поколение для типа без шаблона // v1.0
func genericProtocol(messageType string) (models.Protocol, string) {
	if info, ok := genericProtocols[messageType]; ok {
		return info.protocol, info.version
	}
	return models.ProtocolUnknown, "UNKNOWN"
}
