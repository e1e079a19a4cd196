// filename: internal/decoder/builtin.go
package decoder

import (
	"fmt"

	"github.com/sigscope/sigscope/internal/models"
)

// Вспомогательные конструкторы для компактного описания шаблонов

func intField(lo, hi int64) *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindInteger, Min: &lo, Max: &hi}
}

func enumField(values ...string) *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindEnum, Values: values}
}

func bitField(length int) *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindBitString, Length: length}
}

func octetField() *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindOctetString}
}

func bcdField(length int) *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindBCDString, Length: length}
}

func seqField() *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindSequence}
}

func choiceField(options ...string) *FieldSchema {
	return &FieldSchema{Kind: models.FieldKindChoice, Options: options}
}

func branch(fields map[string]*FieldSchema) *FieldSchema {
	return &FieldSchema{Fields: fields}
}

func opt(s *FieldSchema) *FieldSchema {
	s.Optional = true
	return s
}

func i64(v int64) *int64 {
	return &v
}

// builtinTemplates возвращает встроенные шаблоны сообщений согласно
// спецификациям 3GPP TS 38.331, TS 24.501, TS 38.321, TS 38.322 (5G NR)
// и TS 36.331, TS 24.301, TS 36.321, TS 36.322 (4G LTE) // v1.0
func builtinTemplates() []*MessageTemplate {
	return []*MessageTemplate{
		// 5G NR RRC (3GPP TS 38.331)
		{
			MessageType: "RRCSetupRequest",
			Protocol:    models.ProtocolRRC,
			Version:     "5G",
			Fields: map[string]*FieldSchema{
				"rrcSetupRequest": branch(map[string]*FieldSchema{
					"ue-Identity": branch(map[string]*FieldSchema{
						"s-TMSI": branch(map[string]*FieldSchema{
							"mmec":   bitField(8),
							"m-TMSI": bitField(32),
						}),
					}),
					"establishmentCause": enumField(
						"emergency", "highPriorityAccess", "mt-Access", "mo-Signalling",
						"mo-Data", "mo-VoiceCall", "mo-VideoCall", "mo-SMS",
						"mps-PriorityAccess", "mcs-PriorityAccess",
						"spare6", "spare5", "spare4", "spare3", "spare2", "spare1"),
					"spare": bitField(1),
				}),
			},
		},
		{
			MessageType: "RRCSetup",
			Protocol:    models.ProtocolRRC,
			Version:     "5G",
			Fields: map[string]*FieldSchema{
				"rrcSetup": branch(map[string]*FieldSchema{
					"rrc-TransactionIdentifier": intField(0, 3),
					"criticalExtensions": branch(map[string]*FieldSchema{
						"rrcSetup": branch(map[string]*FieldSchema{
							"radioBearerConfig": branch(map[string]*FieldSchema{
								"srb-ToAddModList":  opt(seqField()),
								"drb-ToAddModList":  opt(seqField()),
								"drb-ToReleaseList": opt(seqField()),
							}),
							"masterCellGroup": branch(map[string]*FieldSchema{
								"cellGroupId":             intField(0, 3),
								"rlc-BearerToAddModList":  opt(seqField()),
								"mac-CellGroupConfig":     opt(seqField()),
								"physicalCellGroupConfig": opt(seqField()),
								"spCellConfig":            opt(seqField()),
							}),
						}),
					}),
				}),
			},
		},

		// 5G NAS (3GPP TS 24.501)
		{
			MessageType: "RegistrationRequest",
			Protocol:    models.ProtocolNAS,
			Version:     "5G",
			Fields: map[string]*FieldSchema{
				"registrationRequest": branch(map[string]*FieldSchema{
					"ngKSI": branch(map[string]*FieldSchema{
						"tsc": bitField(1),
						"ksi": bitField(3),
					}),
					"spareHalfOctet": bitField(4),
					"5GSRegistrationType": branch(map[string]*FieldSchema{
						"followOnRequest":  bitField(1),
						"registrationType": enumField("initial", "mobility", "periodic", "emergency"),
					}),
					"5GSMobileIdentity": choiceField("5G-S-TMSI", "IMEI", "5G-GUTI", "SUCI"),
					"5GMMCapability":    bitField(8),
					"UEStatus":          bitField(8),
					"5GMMCause":         opt(intField(0, 255)),
					"AdditionalGUTI":    opt(seqField()),
					"UEUsageSetting":    opt(enumField("voiceCentric", "dataCentric")),
				}),
			},
		},

		// 5G MAC (3GPP TS 38.321)
		{
			MessageType: "MACPDU",
			Protocol:    models.ProtocolMAC,
			Version:     "5G",
			Fields: map[string]*FieldSchema{
				"macPDU": branch(map[string]*FieldSchema{
					"subPDUs": seqField(),
				}),
			},
		},

		// 5G RLC (3GPP TS 38.322)
		{
			MessageType: "RLCDATA",
			Protocol:    models.ProtocolRLC,
			Version:     "5G",
			Fields: map[string]*FieldSchema{
				"rlcData": branch(map[string]*FieldSchema{
					"D/C":  bitField(1),
					"P":    bitField(1),
					"SI":   bitField(2),
					"SN":   bitField(12),
					"SO":   opt(bitField(16)),
					"data": opt(octetField()),
				}),
			},
		},

		// 4G LTE RRC (3GPP TS 36.331)
		{
			MessageType: "LTE_RRCConnectionRequest",
			Protocol:    models.ProtocolRRC,
			Version:     "4G",
			Fields: map[string]*FieldSchema{
				"rrcConnectionRequest": branch(map[string]*FieldSchema{
					"ue-Identity": branch(map[string]*FieldSchema{
						"s-TMSI": branch(map[string]*FieldSchema{
							"mmec":   bitField(8),
							"m-TMSI": bitField(32),
						}),
					}),
					"establishmentCause": enumField(
						"emergency", "highPriorityAccess", "mt-Access", "mo-Signalling",
						"mo-Data", "mo-VoiceCall", "mo-VideoCall", "mo-SMS",
						"spare6", "spare5", "spare4", "spare3", "spare2", "spare1"),
					"spare": bitField(1),
				}),
			},
		},
		{
			MessageType: "LTE_RRCConnectionSetup",
			Protocol:    models.ProtocolRRC,
			Version:     "4G",
			Fields: map[string]*FieldSchema{
				"rrcConnectionSetup": branch(map[string]*FieldSchema{
					"rrc-TransactionIdentifier": intField(0, 3),
					"criticalExtensions": branch(map[string]*FieldSchema{
						"rrcConnectionSetup-r8": branch(map[string]*FieldSchema{
							"radioResourceConfigDedicated": branch(map[string]*FieldSchema{
								"srb-ToAddModList":        opt(seqField()),
								"drb-ToAddModList":        opt(seqField()),
								"drb-ToReleaseList":       opt(seqField()),
								"mac-MainConfig":          opt(seqField()),
								"physicalConfigDedicated": opt(seqField()),
							}),
						}),
					}),
				}),
			},
		},

		// 4G LTE NAS (3GPP TS 24.301)
		{
			MessageType: "LTE_AttachRequest",
			Protocol:    models.ProtocolNAS,
			Version:     "4G",
			Fields: map[string]*FieldSchema{
				"attachRequest": branch(map[string]*FieldSchema{
					"epsAttachType": enumField("EPS", "combinedEPS/IMSI", "emergency", "reserved"),
					"nasKeySetIdentifier": branch(map[string]*FieldSchema{
						"tsc":                 bitField(1),
						"nasKeySetIdentifier": bitField(3),
					}),
					"epsMobileIdentity":   choiceField("IMSI", "GUTI"),
					"ueNetworkCapability": bitField(8),
					"esmMessageContainer": opt(seqField()),
					"oldGutiType":         opt(bitField(1)),
				}),
			},
		},

		// 4G LTE MAC (3GPP TS 36.321)
		{
			MessageType: "LTE_MACPDU",
			Protocol:    models.ProtocolMAC,
			Version:     "4G",
			Fields: map[string]*FieldSchema{
				"macPDU": branch(map[string]*FieldSchema{
					"subPDUs": seqField(),
				}),
			},
		},

		// 4G LTE RLC (3GPP TS 36.322), 10-битный SN
		{
			MessageType: "LTE_RLCDATA",
			Protocol:    models.ProtocolRLC,
			Version:     "4G",
			Fields: map[string]*FieldSchema{
				"rlcData": branch(map[string]*FieldSchema{
					"D/C":  bitField(1),
					"P":    bitField(1),
					"SI":   bitField(2),
					"SN":   bitField(10),
					"SO":   opt(bitField(16)),
					"data": opt(octetField()),
				}),
			},
		},
	}
}

// builtinIEDefinitions возвращает встроенные определения информационных
// элементов 3GPP. RNTI описан как octetstring: значение извлекается из
// текстового представления в шестнадцатеричном виде. // v1.0
func builtinIEDefinitions() []*IEDefinition {
	return []*IEDefinition{
		// Общие IE
		{Name: "rnti", Kind: models.FieldKindOctetString, Description: "Radio Network Temporary Identifier", Length: 16},
		{Name: "ueId", Kind: models.FieldKindInteger, Description: "UE Identifier", Min: i64(0)},
		{Name: "cellId", Kind: models.FieldKindInteger, Description: "Physical Cell Identifier", Min: i64(0), Max: i64(503)},
		{Name: "mcc", Kind: models.FieldKindBCDString, Description: "Mobile Country Code", Length: 3},
		{Name: "mnc", Kind: models.FieldKindBCDString, Description: "Mobile Network Code", Length: 2},
		{Name: "tac", Kind: models.FieldKindBitString, Description: "Tracking Area Code", Length: 24},

		// PHY (3GPP TS 38.211 / TS 36.211)
		{Name: "harqProcessId", Kind: models.FieldKindInteger, Description: "HARQ Process Identifier (0-15 for 5G NR, 0-7 for 4G LTE)", Min: i64(0), Max: i64(15)},
		{Name: "harqProcessIdLTE", Kind: models.FieldKindInteger, Description: "HARQ Process Identifier for 4G LTE", Min: i64(0), Max: i64(7)},
		{Name: "mcsIndex", Kind: models.FieldKindInteger, Description: "Modulation and Coding Scheme Index (0-31 for 5G NR, 0-28 for 4G LTE)", Min: i64(0), Max: i64(31)},
		{Name: "mcsIndexLTE", Kind: models.FieldKindInteger, Description: "Modulation and Coding Scheme Index for 4G LTE", Min: i64(0), Max: i64(28)},
		{Name: "modulationScheme", Kind: models.FieldKindEnum, Description: "Modulation Scheme (QPSK, 16QAM, 64QAM, 256QAM)", Values: []string{"QPSK", "16QAM", "64QAM", "256QAM"}},
		{Name: "modulationSchemeLTE", Kind: models.FieldKindEnum, Description: "Modulation Scheme for 4G LTE (QPSK, 16QAM, 64QAM)", Values: []string{"QPSK", "16QAM", "64QAM"}},
		{Name: "redundancyVersion", Kind: models.FieldKindInteger, Description: "Redundancy Version for HARQ", Min: i64(0), Max: i64(3)},
		{Name: "transportBlockSize", Kind: models.FieldKindInteger, Description: "Transport Block Size in bits", Min: i64(0), Max: i64(391656)},

		// MAC (3GPP TS 38.321)
		{Name: "logicalChannelId", Kind: models.FieldKindInteger, Description: "Logical Channel Identifier", Min: i64(0), Max: i64(63)},
		{Name: "bufferStatusReport", Kind: models.FieldKindInteger, Description: "Buffer Status Report Level", Min: i64(0), Max: i64(63)},
		{Name: "powerHeadroomReport", Kind: models.FieldKindInteger, Description: "Power Headroom Report in dB", Min: i64(-23), Max: i64(40)},
		{Name: "timingAdvance", Kind: models.FieldKindInteger, Description: "Timing Advance in Ts units", Min: i64(0), Max: i64(3846)},

		// RLC (3GPP TS 38.322 / TS 36.322)
		{Name: "sequenceNumber", Kind: models.FieldKindInteger, Description: "RLC Sequence Number (0-4095 for 5G NR, 0-1023 for 4G LTE)", Min: i64(0), Max: i64(4095)},
		{Name: "sequenceNumberLTE", Kind: models.FieldKindInteger, Description: "RLC Sequence Number for 4G LTE", Min: i64(0), Max: i64(1023)},
		{Name: "segmentOffset", Kind: models.FieldKindInteger, Description: "Segment Offset for reassembly", Min: i64(0), Max: i64(65535)},
		{Name: "pollingBit", Kind: models.FieldKindBitString, Description: "Polling bit for status report request", Length: 1},

		// PDCP (3GPP TS 38.323)
		{Name: "pdcpSequenceNumber", Kind: models.FieldKindInteger, Description: "PDCP Sequence Number", Min: i64(0), Max: i64(32767)},
		{Name: "rohcProfile", Kind: models.FieldKindInteger, Description: "ROHC Profile Identifier", Min: i64(0), Max: i64(15)},

		// RRC (3GPP TS 38.331 / TS 36.331)
		{Name: "rrcTransactionId", Kind: models.FieldKindInteger, Description: "RRC Transaction Identifier (same for 4G and 5G)", Min: i64(0), Max: i64(3)},
		{Name: "establishmentCause", Kind: models.FieldKindEnum, Description: "RRC Establishment Cause (5G NR)", Values: []string{
			"emergency", "highPriorityAccess", "mt-Access", "mo-Signalling", "mo-Data",
			"mo-VoiceCall", "mo-VideoCall", "mo-SMS", "mps-PriorityAccess", "mcs-PriorityAccess"}},
		{Name: "establishmentCauseLTE", Kind: models.FieldKindEnum, Description: "RRC Establishment Cause (4G LTE)", Values: []string{
			"emergency", "highPriorityAccess", "mt-Access", "mo-Signalling", "mo-Data",
			"mo-VoiceCall", "mo-VideoCall", "mo-SMS",
			"spare6", "spare5", "spare4", "spare3", "spare2", "spare1"}},

		// 4G LTE
		{Name: "epsAttachType", Kind: models.FieldKindEnum, Description: "EPS Attach Type for 4G LTE", Values: []string{"EPS", "combinedEPS/IMSI", "emergency", "reserved"}},
		{Name: "nasKeySetIdentifier", Kind: models.FieldKindBitString, Description: "NAS Key Set Identifier for 4G LTE", Length: 4},
		{Name: "epsMobileIdentity", Kind: models.FieldKindChoice, Description: "EPS Mobile Identity for 4G LTE", Options: []string{"IMSI", "GUTI"}},

		// 5G NR
		{Name: "5gsRegistrationType", Kind: models.FieldKindEnum, Description: "5GS Registration Type for 5G NR", Values: []string{"initial", "mobility", "periodic", "emergency"}},
		{Name: "5gsMobileIdentity", Kind: models.FieldKindChoice, Description: "5GS Mobile Identity for 5G NR", Options: []string{"5G-S-TMSI", "IMEI", "5G-GUTI", "SUCI"}},
		{Name: "ngKSI", Kind: models.FieldKindBitString, Description: "Next Generation Key Set Identifier for 5G NR", Length: 4},
	}
}

// registerBuiltins регистрирует встроенные шаблоны и IE. Таблицы статичны,
// ошибка регистрации означает дефект таблицы. // v1.0
func registerBuiltins(templates *TemplateRegistry, ies *IERegistry) {
	for _, template := range builtinTemplates() {
		if err := templates.Register(template); err != nil {
			panic(fmt.Sprintf("builtin template %s: %v", template.MessageType, err))
		}
	}
	for _, ie := range builtinIEDefinitions() {
		if err := ies.Register(ie); err != nil {
			panic(fmt.Sprintf("builtin IE %s: %v", ie.Name, err))
		}
	}
}
