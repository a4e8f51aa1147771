package flow

import (
	"fmt"

	"github.com/m3rciful/insurebot/core/telegram/format"
	"github.com/m3rciful/insurebot/internal/session"
)

// Reply is one outbound HTML message with optional inline buttons.
type Reply struct {
	Text    string
	Buttons []Button
}

// Button is an inline button bound to a callback.
type Button struct {
	Text     string
	Callback Callback
}

const (
	startText = "<b><u>Hello. I'm a car insurance bot</u></b>\n" +
		"My purpose is to assist you with\n" +
		"buying an insurance for your car\n" +
		"Plese type /menu to get futher instructions"

	usageText = "<b><u>Bot menu</u></b>:\n" +
		"/start - start conversation\n" +
		"/send - get information about required documents\n" +
		"/restart - remove send data and fill it one more time"

	sendText = "Currently you have to upload 2 photos:\n" +
		"1) Your passport data\n" +
		"2) Your vehicle identification document"

	restartText = "Your data has been cleared.\n" +
		"Now you can send it one more time"

	alreadyCollectedText = "Sorry, but you already filled and confirmed your data\n" +
		"if something is wrong and you want to send\n" +
		"passport and vehicle data one more time\n" +
		"please type \"/restart\""

	notProcessedText = "Sorry, I was not able to process the photo.\n" +
		"Please send a clearer photo one more time"

	confirmQuestion = "Is it correct?"

	passportConfirmedText  = "Passport data was confirmed\nPlease send your vehicle identification document photo"
	passportRejectedText   = "Passport data wasn't confirmed\nPlease send your passport photo one more time"
	vehicleConfirmedText   = "Vehicle data was confirmed"
	vehicleRejectedText    = "Vehicle data wasn't confirmed\nPlease send your vehicle identification document photo one more time"
	paymentConfirmedText   = "Payment confirmed"
	unknownCallbackText    = "Unknown"
	emptyPolicyText        = "Sorry, the policy text came back empty. Please type /restart and try again"
	paymentDisagreedFormat = "Sorry, but currently the only available price\nis %d$"
	paymentPromptFormat    = "Current price for car insurance is %d$\nDo you agree for this price?"
	paymentAgreeButton     = "Yes, I agree"
	paymentDisagreeButton  = "No, I disagree"
	confirmYesButton       = "Yes"
	confirmNoButton        = "No"
)

func msg(t string) Reply { return Reply{Text: t} }

func confirmButtons(yes, no Callback) []Button {
	return []Button{{Text: confirmYesButton, Callback: yes}, {Text: confirmNoButton, Callback: no}}
}

func passportReply(p session.Passport) Reply {
	return Reply{
		Text: format.Lines(
			format.Heading("Passport Data"),
			format.Field("First name", p.FirstName),
			format.Field("Surname", p.LastName),
		) + "\n\n" + confirmQuestion,
		Buttons: confirmButtons(PassportCorrect, PassportIncorrect),
	}
}

func vehicleReply(v session.Vehicle) Reply {
	return Reply{
		Text: format.Lines(
			format.Heading("Vehicle Data"),
			format.Field("Make", v.Make),
			format.Field("Model", v.Model),
		) + "\n\n" + confirmQuestion,
		Buttons: confirmButtons(VehicleCorrect, VehicleIncorrect),
	}
}

func paymentPrompt(price int) Reply {
	return Reply{
		Text: fmt.Sprintf(paymentPromptFormat, price),
		Buttons: []Button{
			{Text: paymentAgreeButton, Callback: PaymentAgreed},
			{Text: paymentDisagreeButton, Callback: PaymentDisagreed},
		},
	}
}
