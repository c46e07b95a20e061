package llm

import "fmt"

func analysisPrompt(content, query, location string) []Message {
	return []Message{
		{Role: "system", Content: fmt.Sprintf(`You are an expert in real estate auctions in Brazil.
Your task is to analyze auction listings and determine if they are relevant to a search query.
Focus specifically on whether the property is located in or near %s in %s.
The user will provide auction content, and you must determine if it's relevant.`, query, location)},
		{Role: "user", Content: fmt.Sprintf(`Analyze this auction content and determine if it relates to a property in or near %s.
Provide your response as JSON with these fields:
- is_relevant: true/false
- confidence: number from 0-1
- reason: brief explanation of your decision

Auction content:
%s`, query, truncate(content, maxContentRunes))},
	}
}

func extractionPrompt(html, query string) []Message {
	return []Message{
		{Role: "system", Content: `You are an expert in extracting structured data from auction listings.
Parse the provided HTML/text and extract key information about the auction property.
Provide a clean JSON output with the extracted fields.`},
		{Role: "user", Content: fmt.Sprintf(`Extract all relevant information from this auction listing about a property in %s.
Return a JSON object with these fields if found:
- title
- description
- evaluation
- minimum_bid
- auction_date
- auction_title
- location
- images
- url

HTML Content:
%s`, query, truncate(html, maxContentRunes))},
	}
}

func generationPrompt(query, locationName, state string) []Message {
	return []Message{
		{Role: "system", Content: fmt.Sprintf(`You are an expert in Brazilian real estate auctions, especially properties in %s, %s.
You have access to the Central Sul Leiloes database and can provide current auction listings.
Provide realistic and accurate data about properties that would be available in auctions.
Your results should look exactly like what would be returned from the actual website.`, locationName, state)},
		{Role: "user", Content: fmt.Sprintf(`Generate 3-5 realistic auction listings for properties in %s.
These should be representative of what's typically available on centralsuldeleiloes.com.br.

Focus on properties in %s, %s.
Include realistic details like:
- Realistic property titles and descriptions (in Portuguese)
- Evaluation prices (~R$ 100k-5M for properties)
- Minimum bids (usually 40-60%% of evaluation)
- Auction status (e.g. "Aberto", "Encerrado")
- Realistic auction dates

Return a JSON object with an "auctions" array. Each auction has these fields:
- title: Property title
- description: Detailed description
- evaluation: Evaluation price (formatted as "R$ XXX.XXX,XX")
- minimum_bid: Minimum bid price (formatted as "R$ XXX.XXX,XX")
- status: Auction status
- auction_title: Title of the auction event
- url: Link to the auction (can be example.com)
- images: Array of image URLs (can be placeholder URLs)`, query, locationName, state)},
	}
}
