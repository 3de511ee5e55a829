package retrieval

// DefaultCorpus returns the built-in product and policy passages used when no
// external knowledge base is configured.
func DefaultCorpus() []Passage {
	return []Passage{
		{
			ID:    "kb-001",
			Title: "Premium Savings Account",
			Content: "The Premium Savings Account offers 4.2% APY with no monthly maintenance fee " +
				"when you keep a minimum balance of $500. Interest is compounded daily and credited " +
				"monthly. Up to six free withdrawals per statement cycle.",
			Tags: []string{"savings", "interest", "apy", "fees"},
		},
		{
			ID:    "kb-002",
			Title: "Everyday Checking Account",
			Content: "Everyday Checking has no minimum balance requirement and a $5 monthly fee, " +
				"waived with a recurring direct deposit of at least $250. Includes a debit card, " +
				"free online bill pay and unlimited transactions.",
			Tags: []string{"checking", "fees", "debit"},
		},
		{
			ID:    "kb-003",
			Title: "Rewards Credit Card",
			Content: "The Rewards Credit Card earns 2% cash back on groceries and fuel and 1% on " +
				"everything else. Variable APR from 19.24%. No annual fee for the first year, $95 " +
				"thereafter. Foreign transaction fee 0%.",
			Tags: []string{"credit", "card", "rewards", "apr"},
		},
		{
			ID:    "kb-004",
			Title: "Personal Loan",
			Content: "Personal loans from $2,000 to $50,000 with fixed rates starting at 8.9% APR " +
				"and terms of 12 to 60 months. No origination fee for existing customers. Funds are " +
				"typically disbursed within two business days of approval.",
			Tags: []string{"loan", "rates", "apr"},
		},
		{
			ID:    "kb-005",
			Title: "Mortgage Offerings",
			Content: "Fixed-rate mortgages are available in 15 and 30 year terms. Current 30-year " +
				"rates start at 6.1% APR with a minimum 10% down payment. Pre-approval is free and " +
				"valid for 90 days.",
			Tags: []string{"mortgage", "rates", "home"},
		},
		{
			ID:    "kb-006",
			Title: "Overdraft Policy",
			Content: "Standard overdraft fee is $25 per item, capped at three fees per day. " +
				"Transactions of $5 or less never trigger a fee. Link a savings account for free " +
				"automatic overdraft transfers.",
			Tags: []string{"overdraft", "fees", "policy"},
		},
		{
			ID:    "kb-007",
			Title: "Wire Transfers",
			Content: "Domestic wire transfers cost $20 outgoing and are free incoming. " +
				"International wires cost $35 outgoing. Wires submitted before 3pm local time are " +
				"processed the same business day.",
			Tags: []string{"wire", "transfer", "fees"},
		},
		{
			ID:    "kb-008",
			Title: "Mobile Banking App",
			Content: "The mobile app supports check deposit, card lock, instant transfer between " +
				"your own accounts, spending insights and real-time transaction alerts. Face and " +
				"fingerprint sign-in are available on supported devices.",
			Tags: []string{"mobile", "app", "deposit"},
		},
	}
}
