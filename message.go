package main

const (
	MsgRunning = "Microplastic Detection API is running"

	MsgLazyRoot   = "Model loads on first request to save memory"
	MsgLazyHealth = "Model loads on first /predict request to save memory"

	MsgNoFile = "No file uploaded. Use 'file' as the form field name"

	MsgInvalidDimensions = "Image has invalid dimensions"
)
