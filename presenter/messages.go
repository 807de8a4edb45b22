package presenter

const (
	MsgNoImage = "Please upload an X-ray image to start detection."

	MsgNoFractures = "No fractures detected in this image."

	MsgFracturesFound = "Detection complete. Review the highlighted regions below."

	MsgUnsupportedFormat = "We couldn't read this file as an image. Please upload a hand X-ray saved as JPEG or PNG."

	MsgInvalidUpload = "The upload could not be read. Please choose an X-ray image file and submit again."

	MsgUploadTooLarge = "This file is larger than the upload limit. Please upload a smaller X-ray image."

	MsgImageTooLarge = "This image's resolution is too high to process. Please upload a smaller X-ray image."

	MsgDetectionFailed = "Fracture detection failed for this image. Please try again, or upload a different X-ray."

	MsgDetectionTimeout = "Fracture detection took too long and was stopped. Please try again in a moment."

	MsgModelUnavailable = "The detection model is not available right now. Please try again later."
)
