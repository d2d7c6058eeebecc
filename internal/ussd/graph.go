package ussd

import (
	"context"

	"github.com/wochuna/Sacco/internal/ledger"
	"github.com/wochuna/Sacco/internal/session"
)

// Reserved tokens.
const (
	tokenBack = "#"
	separator = "*"
)

// Node names.
const (
	nodeMain               = "main"
	nodeLogin              = "login"
	nodeRegisterPhone      = "register_phone"
	nodeRegisterNationalID = "register_national_id"
	nodeRegisterPIN        = "register_pin"
	nodeLoggedIn           = "logged_in"
	nodeExit               = "exit"

	nodeWithdrawals      = "withdrawals"
	nodeWithdrawProvider = "withdraw_provider"
	nodeWithdrawPhone    = "withdraw_phone"
	nodeWithdrawAmount   = "withdraw_amount"
	nodeWithdrawPIN      = "withdraw_pin"

	nodeDeposits           = "deposits"
	nodeDepositDestination = "deposit_destination"
	nodeDepositProvider    = "deposit_provider"
	nodeDepositPhone       = "deposit_phone"
	nodeDepositAmount      = "deposit_amount"

	nodeAccountManagement = "account_management"
	nodePINCurrent        = "pin_current"
	nodePINNew            = "pin_new"
	nodePINConfirm        = "pin_confirm"
	nodeAccountDetails    = "account_details"

	nodeLoans       = "loans"
	nodeLoansNotice = "loans_notice"
	nodeEnquiries   = "enquiries"
	nodeStatement   = "statement"
	nodeFAQs        = "faqs"
	nodeFAQBalance  = "faq_balance"
	nodeFAQLoan     = "faq_loan"
	nodeFAQPIN      = "faq_pin"
	nodeFAQSupport  = "faq_support"
	nodeHelp        = "help"
)

// Scratch keys.
const (
	keySource        = "source"
	keyDestination   = "destination"
	keyProvider      = "provider"
	keyCounterparty  = "counterparty_phone"
	keyAmount        = "amount"
	keyRegPhone      = "reg_phone"
	keyRegNationalID = "reg_national_id"
	keyNewPINHash    = "new_pin_hash"
)

const (
	providerMPesa  = "M-Pesa"
	providerAirtel = "Airtel Money"
)

// step consumes a token typed at an input node.
type step func(ctx context.Context, m *Machine, sess *session.Session, token string) Response

type edge struct {
	to  string
	set map[string]string
}

type node struct {
	prompt string
	// parent is the target of the back token. Empty means back is not offered.
	parent string
	// options makes the node a menu.
	options map[string]edge
	// input makes the node a value prompt.
	input step
	// final marks an input whose step commits a side effect and ends the
	// session. Final steps are never run while recovering a session.
	final bool
	// terminal nodes render an END message as soon as they are entered.
	terminal bool
}

func to(target string) edge {
	return edge{to: target}
}

func toWith(target string, set map[string]string) edge {
	return edge{to: target, set: set}
}

const providerMenu = "Choose Mobile Money Provider:\n1. " + providerMPesa + "\n2. " + providerAirtel + "\n#. Back"

func route(source, destination ledger.Account) map[string]string {
	return map[string]string{keySource: string(source), keyDestination: string(destination)}
}

// buildGraph returns the static navigation graph of the service.
func buildGraph() map[string]node {
	return map[string]node{
		nodeMain: {
			prompt: "Welcome to our SACCO\n1. Login\n2. Register",
			options: map[string]edge{
				"1": to(nodeLogin),
				"2": to(nodeRegisterPhone),
			},
		},
		nodeLogin: {
			prompt: "Please enter your PIN to proceed:",
			parent: nodeMain,
			input:  loginStep,
		},
		nodeRegisterPhone: {
			prompt: "Enter your phone number:",
			parent: nodeMain,
			input:  registerPhoneStep,
		},
		nodeRegisterNationalID: {
			prompt: "Please enter your National ID number:",
			parent: nodeRegisterPhone,
			input:  registerNationalIDStep,
		},
		nodeRegisterPIN: {
			prompt: "Please enter a 4-digit PIN:",
			parent: nodeRegisterNationalID,
			input:  registerStep,
			final:  true,
		},
		nodeLoggedIn: {
			prompt: "Choose an option:\n1. Withdrawals\n2. Deposits\n3. Account Management\n4. Loans\n5. Enquiries\n0. Exit\n#. Back to Main",
			parent: nodeMain,
			options: map[string]edge{
				"1": to(nodeWithdrawals),
				"2": to(nodeDeposits),
				"3": to(nodeAccountManagement),
				"4": to(nodeLoans),
				"5": to(nodeEnquiries),
				"0": to(nodeExit),
			},
		},
		nodeExit: {
			prompt:   "Thank you for using our SACCO services.",
			terminal: true,
		},

		nodeWithdrawals: {
			prompt: "Withdraw from:\n1. Sacco To Savings\n2. Sacco To Mobile\n3. Savings To Sacco\n4. Savings To Mobile\n#. Back",
			parent: nodeLoggedIn,
			options: map[string]edge{
				"1": toWith(nodeWithdrawAmount, route(ledger.AccountSaccoWallet, ledger.AccountSavings)),
				"2": toWith(nodeWithdrawProvider, route(ledger.AccountSaccoWallet, ledger.AccountMobileMoney)),
				"3": toWith(nodeWithdrawAmount, route(ledger.AccountSavings, ledger.AccountSaccoWallet)),
				"4": toWith(nodeWithdrawProvider, route(ledger.AccountSavings, ledger.AccountMobileMoney)),
			},
		},
		nodeWithdrawProvider: {
			prompt: providerMenu,
			parent: nodeWithdrawals,
			options: map[string]edge{
				"1": toWith(nodeWithdrawPhone, map[string]string{keyProvider: providerMPesa}),
				"2": toWith(nodeWithdrawPhone, map[string]string{keyProvider: providerAirtel}),
			},
		},
		nodeWithdrawPhone: {
			prompt: "Enter the recipient phone number:",
			parent: nodeWithdrawProvider,
			input:  phoneStep(keyCounterparty, nodeWithdrawAmount),
		},
		nodeWithdrawAmount: {
			prompt: "Enter the amount you wish to withdraw:",
			parent: nodeWithdrawals,
			input:  amountStep(nodeWithdrawPIN),
		},
		nodeWithdrawPIN: {
			prompt: "Enter your PIN to confirm withdrawal:",
			parent: nodeWithdrawAmount,
			input:  withdrawStep,
			final:  true,
		},

		nodeDeposits: {
			prompt: "Choose deposit from:\n1. Mobile Money Deposit\n2. Sacco Wallet Deposit\n#. Back",
			parent: nodeLoggedIn,
			options: map[string]edge{
				"1": toWith(nodeDepositDestination, map[string]string{keySource: string(ledger.AccountMobileMoney)}),
				"2": toWith(nodeDepositAmount, route(ledger.AccountSaccoWallet, ledger.AccountSavings)),
			},
		},
		nodeDepositDestination: {
			prompt: "Choose deposit destination:\n1. To Sacco Wallet\n2. To Savings\n#. Back",
			parent: nodeDeposits,
			options: map[string]edge{
				"1": toWith(nodeDepositProvider, map[string]string{keyDestination: string(ledger.AccountSaccoWallet)}),
				"2": toWith(nodeDepositProvider, map[string]string{keyDestination: string(ledger.AccountSavings)}),
			},
		},
		nodeDepositProvider: {
			prompt: providerMenu,
			parent: nodeDepositDestination,
			options: map[string]edge{
				"1": toWith(nodeDepositPhone, map[string]string{keyProvider: providerMPesa}),
				"2": toWith(nodeDepositPhone, map[string]string{keyProvider: providerAirtel}),
			},
		},
		nodeDepositPhone: {
			prompt: "Enter your mobile number:",
			parent: nodeDepositProvider,
			input:  phoneStep(keyCounterparty, nodeDepositAmount),
		},
		nodeDepositAmount: {
			prompt: "Enter the amount you wish to deposit:",
			parent: nodeDeposits,
			input:  depositStep,
			final:  true,
		},

		nodeAccountManagement: {
			prompt: "Account Management:\n1. Update PIN\n2. View Account Details\n#. Back",
			parent: nodeLoggedIn,
			options: map[string]edge{
				"1": to(nodePINCurrent),
				"2": to(nodeAccountDetails),
			},
		},
		nodePINCurrent: {
			prompt: "Enter your current PIN:",
			parent: nodeAccountManagement,
			input:  currentPINStep,
		},
		nodePINNew: {
			prompt: "Enter new PIN:",
			parent: nodeAccountManagement,
			input:  newPINStep,
		},
		nodePINConfirm: {
			prompt: "Confirm new PIN:",
			parent: nodePINNew,
			input:  confirmPINStep,
			final:  true,
		},
		nodeAccountDetails: {
			prompt: "Enter your PIN to view account details:",
			parent: nodeAccountManagement,
			input:  accountDetailsStep,
		},

		nodeLoans: {
			prompt: "Choose an option for Loans:\n1. Apply Loan\n2. Loan Status\n#. Back",
			parent: nodeLoggedIn,
			options: map[string]edge{
				"1": to(nodeLoansNotice),
				"2": to(nodeLoansNotice),
			},
		},
		nodeLoansNotice: {
			prompt:   "This feature is coming soon.",
			terminal: true,
		},

		nodeEnquiries: {
			prompt: "Choose an enquiry option:\n1. Mini Statement\n2. FAQs\n3. Help\n#. Back",
			parent: nodeLoggedIn,
			options: map[string]edge{
				"1": to(nodeStatement),
				"2": to(nodeFAQs),
				"3": to(nodeHelp),
			},
		},
		nodeStatement: {
			prompt: "Enter your PIN to access Mini Statement:",
			parent: nodeEnquiries,
			input:  statementStep,
		},
		nodeFAQs: {
			prompt: "FAQs:\n1. Balance\n2. Loans\n3. PIN\n4. Support\n#. Back",
			parent: nodeEnquiries,
			options: map[string]edge{
				"1": to(nodeFAQBalance),
				"2": to(nodeFAQLoan),
				"3": to(nodeFAQPIN),
				"4": to(nodeFAQSupport),
			},
		},
		nodeFAQBalance: {prompt: "To check balance, go to Enquiries > Mini Statement.", terminal: true},
		nodeFAQLoan:    {prompt: "To apply for a loan, navigate to Loans and follow the instructions.", terminal: true},
		nodeFAQPIN:     {prompt: "To reset PIN, contact customer support at 0720000000.", terminal: true},
		nodeFAQSupport: {prompt: "Please contact customer support via 0720000000.", terminal: true},
		nodeHelp:       {prompt: "You can reach customer support via 0720000000.", terminal: true},
	}
}
