package catalog

// defaultStores is the store network of the campaign. Monthly targets are
// approved proposals per month.
var defaultStores = []Store{
	{Code: 1, Name: "LOJA 01 — CURITIBA CENTRO", CNPJ: "07316250000101", Group: GroupA, MonthlyTarget: 120},
	{Code: 2, Name: "LOJA 02 — CURITIBA PORTÃO", CNPJ: "07316250000292", Group: GroupA, MonthlyTarget: 104},
	{Code: 3, Name: "LOJA 03 — SÃO JOSÉ DOS PINHAIS", CNPJ: "07316250000373", Group: GroupB, MonthlyTarget: 66},
	{Code: 4, Name: "LOJA 04 — COLOMBO", CNPJ: "07316250000454", Group: GroupB, MonthlyTarget: 58},
	{Code: 5, Name: "LOJA 05 — PINHAIS", CNPJ: "07316250000535", Group: GroupC, MonthlyTarget: 34},
	{Code: 6, Name: "LOJA 06 — PONTA GROSSA", CNPJ: "07316250000616", Group: GroupA, MonthlyTarget: 95},
	{Code: 7, Name: "LOJA 07 — CAMPO LARGO", CNPJ: "07316250000705", Group: GroupC, MonthlyTarget: 31},
	{Code: 8, Name: "LOJA 08 — FAZENDA RIO GRANDE", CNPJ: "07316250000888", Group: GroupB, MonthlyTarget: 52},
	{Code: 9, Name: "LOJA 09 — ALMIRANTE TAMANDARÉ", CNPJ: "07316250000969", Group: GroupC, MonthlyTarget: 28},
	{Code: 10, Name: "LOJA 10 — LAPA", CNPJ: "07316250001000", Group: GroupC, MonthlyTarget: 22},
	{Code: 11, Name: "LOJA 11 — CURITIBA BOQUEIRÃO", CNPJ: "07316250001183", Group: GroupB, MonthlyTarget: 61},
	{Code: 12, Name: "LOJA 12 — ARAUCÁRIA CENTRO", CNPJ: "07316250001264", Group: GroupA, MonthlyTarget: 89},
	{Code: 13, Name: "LOJA 13 — PARANAGUÁ", CNPJ: "07316250001345", Group: GroupB, MonthlyTarget: 57},
	{Code: 14, Name: "LOJA 14 — GUARAPUAVA", CNPJ: "07316250001426", Group: GroupB, MonthlyTarget: 54},
	{Code: 15, Name: "LOJA 15 — RIO NEGRO", CNPJ: "07316250001507", Group: GroupC, MonthlyTarget: 19},
	{Code: 16, Name: "LOJA 16 — CURITIBA CIC", CNPJ: "07316250001698", Group: GroupA, MonthlyTarget: 98},
}
