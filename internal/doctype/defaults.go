package doctype

// typeSynonyms maps normalized labels onto canonical type names before the
// keyword scan runs.
var typeSynonyms = map[string]string{
	"relatorio":         "laudo",
	"resultado":         "exame",
	"exame_laboratorial": "exame",
	"exame_sangue":      "exame",
	"teste":             "exame",
	"atestado":          "laudo",
	"declaracao":        "documento",
	"formulario":        "documento",
	"comprovante":       "documento",
}

func defaultTypes() []DocumentType {
	return []DocumentType{
		{
			TypeName:             "exame",
			DestinationSubfolder: "exames",
			Keywords:             []string{"exame", "resultado", "imagem", "ultrassom", "laboratorio"},
			RelatedSpecialties: []string{
				"radiologia",
				"laboratorial",
				"cardiologia",
				"endocrinologia",
				"ginecologia",
				"otorrinolaringologia",
				"infectologia",
			},
			RequiresDate: true,
		},
		{
			TypeName:             "receita",
			DestinationSubfolder: "receitas_medicas",
			Keywords:             []string{"receita", "prescricao", "uso continuo", "medicamento"},
			RequiresDate:         true,
		},
		{
			TypeName:             "vacina",
			DestinationSubfolder: "vacinas",
			Keywords:             []string{"vacina", "imunizacao", "dose", "cartao"},
			RequiresDate:         true,
		},
		{
			TypeName:             "controle",
			DestinationSubfolder: "controle_de_pressao_e_glicose",
			Keywords:             []string{"pressao", "glicose", "monitoramento", "controle"},
			RequiresDate:         true,
		},
		{
			TypeName:             "contato",
			DestinationSubfolder: "contatos_medicos",
			Keywords:             []string{"contato", "telefone", "endereco", "clinica"},
			RequiresDate:         false,
		},
		{
			TypeName:             "laudo",
			DestinationSubfolder: "laudos",
			Keywords:             []string{"laudo", "relatorio", "atestado"},
			RequiresDate:         true,
		},
		{
			TypeName:             "agenda",
			DestinationSubfolder: "agendas",
			Keywords:             []string{"agenda", "consulta", "agendamento"},
			RequiresDate:         true,
		},
		{
			TypeName:             "documento",
			DestinationSubfolder: "documentos",
			Keywords:             []string{"documento", "formulario"},
			RequiresDate:         true,
		},
	}
}
